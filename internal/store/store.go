// Package store caches transcriptions in Badger so a retry or a rerun of the
// aligner does not call the ASR backend again.
//
// Keys are "tr:<recitation>:<surah>" with the surah zero-padded, so one
// recitation's entries sort by surah under a shared prefix. Values are JSON
// envelopes tagged with entryFormat; an entry in any other format is dropped
// on read and reported as a miss.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/logger"
)

// ErrNotFound is returned when no usable transcription is cached for a key.
var ErrNotFound = errors.New("transcription not cached")

const entryFormat = 1

// Options configures the cache.
type Options struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path     string
	InMemory bool

	// TTL expires entries this long after they are written. Zero keeps them.
	TTL time.Duration

	Logger *slog.Logger
}

// Store is the transcription cache.
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

type entry struct {
	Format        int                   `json:"format"`
	CachedAt      time.Time             `json:"cached_at"`
	Transcription *domain.Transcription `json:"transcription"`
}

// Open opens or creates the cache.
func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithSyncWrites(true).
		WithCompactL0OnClose(true)
	if opts.InMemory {
		bopts = bopts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open transcription cache: %w", err)
	}

	log := logger.OrDiscard(opts.Logger)
	log.Info("transcription cache opened", "path", opts.Path, "in_memory", opts.InMemory, "ttl", opts.TTL)
	return &Store{db: db, ttl: opts.TTL, logger: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func key(recitationID string, surah int) []byte {
	return fmt.Appendf(nil, "tr:%s:%03d", recitationID, surah)
}

// GetTranscription returns the cached transcription of one surah, or
// ErrNotFound.
func (s *Store) GetTranscription(recitationID string, surah int) (*domain.Transcription, error) {
	k := key(recitationID, surah)

	var e entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error { return json.Unmarshal(v, &e) })
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, ErrNotFound
	case err == nil && e.Format == entryFormat && e.Transcription != nil:
		s.logger.Debug("transcription cache hit", "key", string(k), "age", time.Since(e.CachedAt).Round(time.Second))
		return e.Transcription, nil
	}

	// Unreadable or from another format: drop it so the next miss refills it.
	s.logger.Warn("discarding stale transcription cache entry",
		"key", string(k), "format", e.Format, "error", err)
	if derr := s.db.Update(func(txn *badger.Txn) error { return txn.Delete(k) }); derr != nil {
		return nil, fmt.Errorf("drop cache entry %s: %w", k, derr)
	}
	return nil, ErrNotFound
}

// PutTranscription stores or replaces the transcription of t.SurahID.
func (s *Store) PutTranscription(recitationID string, t *domain.Transcription) error {
	if t == nil {
		return errors.New("put transcription: nil transcription")
	}
	data, err := json.Marshal(entry{Format: entryFormat, CachedAt: time.Now().UTC(), Transcription: t})
	if err != nil {
		return fmt.Errorf("encode transcription: %w", err)
	}

	e := badger.NewEntry(key(recitationID, t.SurahID), data)
	if s.ttl > 0 {
		e = e.WithTTL(s.ttl)
	}
	if err := s.db.Update(func(txn *badger.Txn) error { return txn.SetEntry(e) }); err != nil {
		return fmt.Errorf("put transcription: %w", err)
	}
	return nil
}
