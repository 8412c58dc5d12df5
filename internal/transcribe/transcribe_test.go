package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munajjam/munajjam/internal/domain"
	domainerrors "github.com/munajjam/munajjam/internal/errors"
	"github.com/munajjam/munajjam/internal/ratelimit"
	"github.com/munajjam/munajjam/internal/store"
)

var rec = domain.Recitation{ID: "rec-1", ReciterName: "Badr Al-Turki"}

const segmentsJSON = `[
  {"id": 1, "surah_id": 112, "start": 0.0, "end": 2.5, "text": "أعوذ بالله من الشيطان الرجيم", "type": "istiadha", "confidence": null},
  {"id": 2, "surah_id": 112, "start": 2.9, "end": 5.1, "text": "بسم الله الرحمن الرحيم", "type": "basmala", "confidence": 0.91},
  {"id": 3, "surah_id": 112, "start": 5.6, "end": 8.0, "text": "قل هو الله أحد", "type": "ayah", "confidence": 0.97}
]`

const silencesJSON = `[[2500, 2900], [5100, 5600]]`

func TestFileNames(t *testing.T) {
	assert.Equal(t, "surah_001_segments.json", SegmentsFileName(1))
	assert.Equal(t, "surah_114_silences.json", SilencesFileName(114))
	assert.Equal(t, "036.wav", AudioFileName(36))
}

func TestParseSegmentsFileName(t *testing.T) {
	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"surah_002_segments.json", 2, true},
		{"/inbox/surah_114_segments.json", 114, true},
		{"surah_002_silences.json", 0, false},
		{"surah_2_segments.json", 0, false},
		{"surah_000_segments.json", 0, false},
		{"notes.txt", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSegmentsFileName(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSilencesFileName(t *testing.T) {
	n, ok := ParseSilencesFileName("/inbox/surah_036_silences.json")
	assert.True(t, ok)
	assert.Equal(t, 36, n)

	_, ok = ParseSilencesFileName("surah_036_segments.json")
	assert.False(t, ok)
}

func TestReadSegments(t *testing.T) {
	segs, err := ReadSegments(strings.NewReader(segmentsJSON))
	require.NoError(t, err)
	require.Len(t, segs, 3)

	assert.Equal(t, domain.SegmentIstiadha, segs[0].Kind)
	assert.Nil(t, segs[0].Confidence)
	require.NotNil(t, segs[1].Confidence)
	assert.InDelta(t, 0.91, *segs[1].Confidence, 1e-9)
	assert.Equal(t, 112, segs[2].SurahID)
	assert.InDelta(t, 5.6, segs[2].Start, 1e-9)
}

func TestReadSegments_DefaultsKindToAyah(t *testing.T) {
	segs, err := ReadSegments(strings.NewReader(`[{"start": 1, "end": 2, "text": "الله الصمد"}]`))
	require.NoError(t, err)
	assert.Equal(t, domain.SegmentAyah, segs[0].Kind)
}

func TestReadSilences_ConvertsMillis(t *testing.T) {
	sil, err := ReadSilences(strings.NewReader(silencesJSON))
	require.NoError(t, err)
	require.Len(t, sil, 2)
	assert.InDelta(t, 2.5, sil[0].Start, 1e-9)
	assert.InDelta(t, 5.6, sil[1].End, 1e-9)
}

func TestReadSegments_Invalid(t *testing.T) {
	_, err := ReadSegments(strings.NewReader(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SegmentsFileName(112)), []byte(segmentsJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, SilencesFileName(112)), []byte(silencesJSON), 0o644))

	got, err := NewFileSource(dir).Transcribe(context.Background(), Request{Recitation: rec, Surah: 112})
	require.NoError(t, err)
	assert.Equal(t, 112, got.SurahID)
	assert.Len(t, got.Segments, 3)
	assert.Len(t, got.Silences, 2)
}

func TestFileSource_MissingSilencesIsFine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SegmentsFileName(1)), []byte(`[]`), 0o644))

	got, err := NewFileSource(dir).Transcribe(context.Background(), Request{Surah: 1})
	require.NoError(t, err)
	assert.Empty(t, got.Silences)
}

func TestFileSource_MissingSegments(t *testing.T) {
	_, err := NewFileSource(t.TempDir()).Transcribe(context.Background(), Request{Surah: 9})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestWriteFiles_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	conf := 0.8
	want := &domain.Transcription{
		SurahID: 108,
		Segments: []domain.Segment{
			{ID: 1, SurahID: 108, Text: "انا اعطيناك الكوثر", Start: 0.25, End: 3.5, Kind: domain.SegmentAyah, Confidence: &conf},
		},
		Silences: []domain.Silence{{Start: 3.5, End: 4.25}},
	}
	require.NoError(t, WriteFiles(dir, want))

	got, err := NewFileSource(dir).Transcribe(context.Background(), Request{Surah: 108})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFilterSpecial(t *testing.T) {
	segs, err := ReadSegments(strings.NewReader(segmentsJSON))
	require.NoError(t, err)

	kept, dropped := FilterSpecial(segs, 112)
	assert.Equal(t, 2, dropped)
	require.Len(t, kept, 1)
	assert.Equal(t, 3, kept[0].ID)

	// In Al-Fatiha the basmala is the first ayah.
	kept, dropped = FilterSpecial(segs, 1)
	assert.Equal(t, 1, dropped)
	assert.Len(t, kept, 2)
}

func TestFilterSpecial_DetectsByText(t *testing.T) {
	segs := []domain.Segment{
		{Text: "أَعُوذُ بِاللَّهِ مِنَ الشَّيْطَانِ الرَّجِيمِ", Kind: domain.SegmentAyah},
		{Text: "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ", Kind: domain.SegmentAyah},
		{Text: "عوذ بالله من الشيطان الرجيم", Kind: domain.SegmentAyah},
		{Text: "الحمد لله رب العالمين", Kind: domain.SegmentAyah},
	}

	kept, dropped := FilterSpecial(segs, 2)
	assert.Equal(t, 3, dropped)
	require.Len(t, kept, 1)
	assert.Equal(t, "الحمد لله رب العالمين", kept[0].Text)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*domain.Transcription
	gets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]*domain.Transcription)}
}

func (m *memoryCache) key(id string, surah int) string {
	return id + ":" + SegmentsFileName(surah)
}

func (m *memoryCache) GetTranscription(id string, surah int) (*domain.Transcription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	t, ok := m.entries[m.key(id, surah)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (m *memoryCache) PutTranscription(id string, t *domain.Transcription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.key(id, t.SurahID)] = t
	return nil
}

type countingTranscriber struct {
	calls int
}

func (c *countingTranscriber) Transcribe(_ context.Context, req Request) (*domain.Transcription, error) {
	c.calls++
	return &domain.Transcription{
		SurahID:  req.Surah,
		Segments: []domain.Segment{{Text: "call", Start: float64(c.calls), End: float64(c.calls) + 1}},
	}, nil
}

func TestCached(t *testing.T) {
	next := &countingTranscriber{}
	cache := newMemoryCache()
	c := NewCached(next, cache, nil)
	ctx := context.Background()

	first, err := c.Transcribe(ctx, Request{Recitation: rec, Surah: 112})
	require.NoError(t, err)
	second, err := c.Transcribe(ctx, Request{Recitation: rec, Surah: 112})
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)

	// Fresh bypasses the read and refreshes the entry.
	fresh, err := c.Transcribe(ctx, Request{Recitation: rec, Surah: 112, Fresh: true})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
	assert.InDelta(t, 2.0, fresh.Segments[0].Start, 1e-9)

	again, err := c.Transcribe(ctx, Request{Recitation: rec, Surah: 112})
	require.NoError(t, err)
	assert.Equal(t, fresh, again)
	assert.Equal(t, 2, next.calls)
}

func TestCached_WithBadgerStore(t *testing.T) {
	s, err := store.Open(store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	next := &countingTranscriber{}
	c := NewCached(next, s, nil)

	_, err = c.Transcribe(context.Background(), Request{Recitation: rec, Surah: 1})
	require.NoError(t, err)

	_, err = s.GetTranscription(rec.ID, 1)
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), Request{Recitation: rec, Surah: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestCached_PropagatesErrors(t *testing.T) {
	failing := Func(func(context.Context, Request) (*domain.Transcription, error) {
		return nil, domainerrors.Transcription("asr down")
	})
	c := NewCached(failing, newMemoryCache(), nil)

	_, err := c.Transcribe(context.Background(), Request{Recitation: rec, Surah: 3})
	assert.ErrorIs(t, err, domainerrors.ErrTranscription)
}

func TestThrottled(t *testing.T) {
	next := &countingTranscriber{}
	// One call per hour: the second call has to wait and hits the deadline.
	th := NewThrottled(next, ratelimit.New(1.0/3600, 1))

	_, err := th.Transcribe(context.Background(), Request{Recitation: rec, Surah: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = th.Transcribe(ctx, Request{Recitation: rec, Surah: 2})
	assert.Error(t, err)
	assert.Equal(t, 1, next.calls)

	// Another recitation has its own budget.
	_, err = th.Transcribe(context.Background(), Request{Recitation: domain.Recitation{ID: "rec-2"}, Surah: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell helper scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "asr.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestCommandTranscriber(t *testing.T) {
	script := writeScript(t, `cat <<'EOF'
{"segments": [{"id": 1, "start": 0.5, "end": 2.0, "text": " قل هو الله احد "}], "silences": [[2000, 2400]]}
EOF
`)
	c, err := NewCommandTranscriber("sh "+script, nil)
	require.NoError(t, err)

	got, err := c.Transcribe(context.Background(), Request{Recitation: rec, Surah: 112, AudioPath: "112.wav"})
	require.NoError(t, err)
	require.Len(t, got.Segments, 1)
	assert.Equal(t, "قل هو الله احد", got.Segments[0].Text)
	assert.Equal(t, 112, got.Segments[0].SurahID)
	assert.Equal(t, domain.SegmentAyah, got.Segments[0].Kind)
	require.Len(t, got.Silences, 1)
	assert.InDelta(t, 2.4, got.Silences[0].End, 1e-9)
}

func TestCommandTranscriber_ReportsStderr(t *testing.T) {
	script := writeScript(t, "echo 'model not found' >&2\nexit 3\n")
	c, err := NewCommandTranscriber("sh "+script, nil)
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), Request{Surah: 1, AudioPath: "001.wav"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrTranscription)
	assert.Contains(t, err.Error(), "model not found")

	var ee interface{ ExitCode() int }
	assert.True(t, errors.As(err, &ee))
}

func TestCommandTranscriber_BadOutput(t *testing.T) {
	script := writeScript(t, "echo 'not json'\n")
	c, err := NewCommandTranscriber("sh "+script, nil)
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), Request{Surah: 1, AudioPath: "001.wav"})
	assert.ErrorIs(t, err, domainerrors.ErrTranscription)
}

func TestCommandTranscriber_RequiresAudio(t *testing.T) {
	c, err := NewCommandTranscriber("asr", nil)
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), Request{Surah: 1})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestNewCommandTranscriber_Empty(t *testing.T) {
	_, err := NewCommandTranscriber("   ", nil)
	assert.Error(t, err)
}

func TestProbeDuration_MissingFile(t *testing.T) {
	_, err := ProbeDuration(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}
