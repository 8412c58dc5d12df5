package search

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/munajjam/munajjam/internal/logger"
	"github.com/munajjam/munajjam/internal/quran"
)

// mappingVersion changes whenever buildIndexMapping does. An on-disk index
// built with another version is discarded when opened.
const mappingVersion = 2

const indexBatchSize = 500

// SearchIndex is a Bleve index of reference ayahs. Its methods are safe for
// concurrent use; Rebuild and Close take the write lock.
type SearchIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	dir    string // empty for an in-memory index
	logger *slog.Logger
}

// Options configures the search index.
type Options struct {
	// DataPath holds the index and its stamp file. Empty keeps the index in
	// memory.
	DataPath string
	Logger   *slog.Logger
}

// stamp records what an on-disk index was built from.
type stamp struct {
	Mapping   int    `json:"mapping"`
	Reference string `json:"reference,omitempty"`
}

// NewSearchIndex opens the index under opts.DataPath, creating it when it is
// missing, unreadable, or was built with a different mapping.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	s := &SearchIndex{dir: opts.DataPath, logger: logger.OrDiscard(opts.Logger)}

	if s.dir == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		s.index = index
		return s, nil
	}

	st, err := s.readStamp()
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		s.logger.Warn("unreadable search index stamp, rebuilding", "error", err)
	case st.Mapping != mappingVersion:
		s.logger.Info("search index mapping changed, rebuilding",
			"old_version", st.Mapping, "new_version", mappingVersion)
	default:
		index, err := bleve.Open(s.indexPath())
		if err == nil {
			s.index = index
			s.logger.Info("opened search index", "path", s.indexPath())
			return s, nil
		}
		s.logger.Warn("failed to open search index, rebuilding", "path", s.indexPath(), "error", err)
	}

	if err := s.create(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SearchIndex) indexPath() string { return filepath.Join(s.dir, "ayahs.bleve") }
func (s *SearchIndex) stampPath() string { return filepath.Join(s.dir, "ayahs.stamp") }

// create replaces whatever is on disk with an empty index.
func (s *SearchIndex) create() error {
	if err := os.RemoveAll(s.indexPath()); err != nil {
		return fmt.Errorf("remove old index: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	index, err := bleve.New(s.indexPath(), buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	if err := s.writeStamp(stamp{Mapping: mappingVersion}); err != nil {
		s.logger.Warn("failed to write search index stamp", "error", err)
	}
	s.logger.Info("created search index", "path", s.indexPath(), "mapping_version", mappingVersion)
	return nil
}

func (s *SearchIndex) readStamp() (stamp, error) {
	var st stamp
	data, err := os.ReadFile(s.stampPath())
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse %s: %w", s.stampPath(), err)
	}
	return st, nil
}

func (s *SearchIndex) writeStamp(st stamp) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return os.WriteFile(s.stampPath(), data, 0o644)
}

// Close releases the index.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocuments adds docs in batches.
func (s *SearchIndex) IndexDocuments(docs []*AyahDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for chunk := range slices.Chunk(docs, indexBatchSize) {
		batch := s.index.NewBatch()
		for _, doc := range chunk {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch at %s: %w", chunk[0].ID, err)
		}
	}
	return nil
}

// IndexReference indexes every ayah loaded in ref.
func (s *SearchIndex) IndexReference(ref *quran.Reference) error {
	var docs []*AyahDocument
	for a := range ref.All() {
		docs = append(docs, NewAyahDocument(a))
	}
	if err := s.IndexDocuments(docs); err != nil {
		return err
	}
	s.logger.Info("indexed reference ayahs", "count", len(docs))
	return nil
}

// Sync makes the index hold exactly the ayahs of ref. An on-disk index
// already built from the same reference text is left alone; otherwise it is
// rebuilt. It reports whether the ayahs were (re)indexed.
func (s *SearchIndex) Sync(ref *quran.Reference) (bool, error) {
	fp := Fingerprint(ref)

	if s.dir != "" {
		if st, err := s.readStamp(); err == nil && st.Reference == fp {
			if n, err := s.DocumentCount(); err == nil && n > 0 {
				return false, nil
			}
		}
	}

	if n, _ := s.DocumentCount(); n > 0 {
		if err := s.Rebuild(); err != nil {
			return false, err
		}
	}
	if err := s.IndexReference(ref); err != nil {
		return false, err
	}
	if s.dir != "" {
		if err := s.writeStamp(stamp{Mapping: mappingVersion, Reference: fp}); err != nil {
			return true, fmt.Errorf("write stamp: %w", err)
		}
	}
	return true, nil
}

// Fingerprint identifies the text of a reference. Two references with the
// same ayahs in the same surahs have the same fingerprint.
func Fingerprint(ref *quran.Reference) string {
	h := sha256.New()
	for a := range ref.All() {
		h.Write([]byte(strconv.Itoa(a.SurahID)))
		h.Write([]byte{':'})
		h.Write([]byte(strconv.Itoa(a.Number)))
		h.Write([]byte{0})
		h.Write([]byte(a.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}

// DocumentCount returns the number of indexed ayahs.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops every document, leaving an empty index.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if s.dir == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return fmt.Errorf("create memory index: %w", err)
		}
		s.index = index
		return nil
	}
	return s.create()
}
