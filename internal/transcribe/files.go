package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/munajjam/munajjam/internal/domain"
	domainerrors "github.com/munajjam/munajjam/internal/errors"
)

var (
	segmentsFilePattern = regexp.MustCompile(`^surah_(\d{3})_segments\.json$`)
	silencesFilePattern = regexp.MustCompile(`^surah_(\d{3})_silences\.json$`)
)

// SegmentsFileName returns the file name holding a surah's segments.
func SegmentsFileName(surah int) string {
	return fmt.Sprintf("surah_%03d_segments.json", surah)
}

// SilencesFileName returns the file name holding a surah's silences.
func SilencesFileName(surah int) string {
	return fmt.Sprintf("surah_%03d_silences.json", surah)
}

// AudioFileName returns the conventional audio file name of a surah.
func AudioFileName(surah int) string {
	return fmt.Sprintf("%03d.wav", surah)
}

// ParseSegmentsFileName extracts the surah number from a segments file name.
func ParseSegmentsFileName(name string) (int, bool) {
	return parseSurahFileName(segmentsFilePattern, name)
}

// ParseSilencesFileName extracts the surah number from a silences file name.
func ParseSilencesFileName(name string) (int, bool) {
	return parseSurahFileName(silencesFilePattern, name)
}

func parseSurahFileName(pattern *regexp.Regexp, name string) (int, bool) {
	m := pattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// fileSegment is the on-disk segment record.
type fileSegment struct {
	ID         int                    `json:"id"`
	SurahID    int                    `json:"surah_id"`
	Start      float64                `json:"start"`
	End        float64                `json:"end"`
	Text       string                 `json:"text"`
	Type       string                 `json:"type"`
	Confidence *float64               `json:"confidence"`
	Words      []domain.WordTimestamp `json:"words,omitempty"`
}

func (f fileSegment) segment() domain.Segment {
	kind := domain.SegmentKind(f.Type)
	if kind == "" {
		kind = domain.SegmentAyah
	}
	return domain.Segment{
		ID:         f.ID,
		SurahID:    f.SurahID,
		Text:       f.Text,
		Start:      f.Start,
		End:        f.End,
		Words:      f.Words,
		Kind:       kind,
		Confidence: f.Confidence,
	}
}

// ReadSegments decodes a JSON array of segment records.
func ReadSegments(r io.Reader) ([]domain.Segment, error) {
	var raw []fileSegment
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	segments := make([]domain.Segment, 0, len(raw))
	for _, f := range raw {
		segments = append(segments, f.segment())
	}
	return segments, nil
}

// ReadSilences decodes a JSON array of [start_ms, end_ms] pairs into seconds.
func ReadSilences(r io.Reader) ([]domain.Silence, error) {
	var raw [][2]float64
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode silences: %w", err)
	}
	return silencesFromMillis(raw), nil
}

func silencesFromMillis(raw [][2]float64) []domain.Silence {
	silences := make([]domain.Silence, 0, len(raw))
	for _, p := range raw {
		silences = append(silences, domain.Silence{Start: p[0] / 1000, End: p[1] / 1000})
	}
	return silences
}

// WriteFiles writes t to dir in the layout FileSource reads.
func WriteFiles(dir string, t *domain.Transcription) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	records := make([]fileSegment, 0, len(t.Segments))
	for _, s := range t.Segments {
		records = append(records, fileSegment{
			ID:         s.ID,
			SurahID:    s.SurahID,
			Start:      s.Start,
			End:        s.End,
			Text:       s.Text,
			Type:       string(s.Kind),
			Confidence: s.Confidence,
			Words:      s.Words,
		})
	}
	if err := writeJSON(filepath.Join(dir, SegmentsFileName(t.SurahID)), records); err != nil {
		return err
	}

	millis := make([][2]float64, 0, len(t.Silences))
	for _, s := range t.Silences {
		millis = append(millis, [2]float64{s.Start * 1000, s.End * 1000})
	}
	return writeJSON(filepath.Join(dir, SilencesFileName(t.SurahID)), millis)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// FileSource reads transcriptions that an offline ASR job left in a directory.
// A missing silences file is not an error; the surah is aligned without them.
type FileSource struct {
	Dir string
}

// NewFileSource creates a FileSource over dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

// Transcribe implements Transcriber.
func (f *FileSource) Transcribe(ctx context.Context, req Request) (*domain.Transcription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	segPath := filepath.Join(f.Dir, SegmentsFileName(req.Surah))
	segFile, err := os.Open(segPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domainerrors.NotFoundf("no segments file for surah %d in %s", req.Surah, f.Dir)
	}
	if err != nil {
		return nil, domainerrors.Transcription("open segments").WithCause(err)
	}
	defer segFile.Close()

	segments, err := ReadSegments(segFile)
	if err != nil {
		return nil, domainerrors.Transcription(segPath).WithCause(err)
	}

	silences, err := f.silences(req.Surah)
	if err != nil {
		return nil, err
	}

	return &domain.Transcription{
		SurahID:  req.Surah,
		Segments: segments,
		Silences: silences,
	}, nil
}

func (f *FileSource) silences(surah int) ([]domain.Silence, error) {
	path := filepath.Join(f.Dir, SilencesFileName(surah))
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, domainerrors.Transcription("open silences").WithCause(err)
	}
	defer file.Close()

	silences, err := ReadSilences(file)
	if err != nil {
		return nil, domainerrors.Transcription(path).WithCause(err)
	}
	return silences, nil
}
