package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munajjam/munajjam/internal/align"
	"github.com/munajjam/munajjam/internal/config"
	"github.com/munajjam/munajjam/internal/di/providers"
	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/pipeline"
	"github.com/munajjam/munajjam/internal/sse"
	"github.com/munajjam/munajjam/internal/transcribe"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, _, err := config.LoadConfig([]string{
		"-env-file", filepath.Join(dir, "missing.env"),
		"-data-path", dir,
		"-reciter", "Test Reciter",
		"-recitation-id", "rec-1",
		"-log-level", "error",
	})
	require.NoError(t, err)
	return cfg
}

func fatihaSegments() []domain.Segment {
	texts := []string{
		"بسم الله الرحمن الرحيم",
		"الحمد لله رب العالمين",
		"الرحمن الرحيم",
		"مالك يوم الدين",
		"اياك نعبد واياك نستعين",
		"اهدنا الصراط المستقيم",
		"صراط الذين انعمت عليهم غير المغضوب عليهم ولا الضالين",
	}
	segments := make([]domain.Segment, len(texts))
	for i, text := range texts {
		segments[i] = domain.Segment{ID: i + 1, SurahID: 1, Start: float64(i) * 5, End: float64(i)*5 + 4, Text: text}
	}
	return segments
}

func TestContainer_ProvidesAligner(t *testing.T) {
	cfg := testConfig(t)
	cfg.Alignment.Strategy = "greedy"
	injector := NewContainer(cfg)
	t.Cleanup(func() { _ = injector.Shutdown() })

	aligner := do.MustInvoke[*align.Aligner](injector)
	assert.Equal(t, domain.StrategyGreedy, aligner.Options().Strategy)

	rec := do.MustInvoke[domain.Recitation](injector)
	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, "Test Reciter", rec.ReciterName)
}

func TestContainer_FileSourceWithoutCommand(t *testing.T) {
	injector := NewContainer(testConfig(t))
	t.Cleanup(func() { _ = injector.Shutdown() })

	tr := do.MustInvoke[transcribe.Transcriber](injector)
	assert.IsType(t, &transcribe.FileSource{}, tr)
}

func TestContainer_CommandIsCached(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.TranscriberCommand = "asr-helper --model small"
	injector := NewContainer(cfg)
	t.Cleanup(func() { _ = injector.Shutdown() })

	tr := do.MustInvoke[transcribe.Transcriber](injector)
	assert.IsType(t, &transcribe.Cached{}, tr)
}

func TestContainer_SearchIndexFilledFromReference(t *testing.T) {
	injector := NewContainer(testConfig(t))
	t.Cleanup(func() { _ = injector.Shutdown() })

	index := do.MustInvoke[*providers.SearchIndexHandle](injector)
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), count)
}

func TestContainer_RunsSurahFromInbox(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, transcribe.WriteFiles(cfg.Data.InboxPath, &domain.Transcription{SurahID: 1, Segments: fatihaSegments()}))

	injector := NewContainer(cfg)
	t.Cleanup(func() { _ = injector.Shutdown() })

	controller := do.MustInvoke[*pipeline.Controller](injector)
	rec := do.MustInvoke[domain.Recitation](injector)

	run, err := controller.RunSurah(context.Background(), rec, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.SurahSuccess, run.State)
	assert.Equal(t, 7, run.Aligned)

	store := do.MustInvoke[*providers.StoreHandle](injector)
	ayahs, err := store.ListAyahs(context.Background(), "rec-1", 1)
	require.NoError(t, err)
	assert.Len(t, ayahs, 7)
}

func TestContainer_WatcherAnnouncesSurahs(t *testing.T) {
	cfg := testConfig(t)
	injector := NewContainer(cfg)
	t.Cleanup(func() { _ = injector.Shutdown() })

	events := do.MustInvoke[*providers.EventManagerHandle](injector)
	sub, err := events.Subscribe("rec-1", 0)
	require.NoError(t, err)

	require.NoError(t, StartWatcher(injector))
	require.NoError(t, transcribe.WriteFiles(cfg.Data.InboxPath, &domain.Transcription{SurahID: 1, Segments: fatihaSegments()}))

	select {
	case e := <-sub.Events:
		assert.Equal(t, sse.EventSurahAligned, e.Type)
		assert.Equal(t, "rec-1", e.RecitationID)
	case <-time.After(10 * time.Second):
		t.Fatal("no surah event")
	}
}

func TestContainer_RecitationIDFromReciterName(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recitation.ID = ""
	injector := NewContainer(cfg)
	t.Cleanup(func() { _ = injector.Shutdown() })

	rec := do.MustInvoke[domain.Recitation](injector)
	assert.Equal(t, "test-reciter", rec.ID)
}
