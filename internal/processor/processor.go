package processor

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/logger"
	"github.com/munajjam/munajjam/internal/transcribe"
	"github.com/munajjam/munajjam/internal/watcher"
)

// Runner aligns one surah. *pipeline.Controller satisfies it.
type Runner interface {
	RunSurah(ctx context.Context, rec domain.Recitation, surah int) (*domain.SurahRun, error)
}

// EventProcessor processes inbox events for one recitation.
//
// Key design principles:
//   - A segments file triggers a run of its surah
//   - A silences file triggers a run only when the segments are already there
//   - Per-surah locking with TryLock drops events for a surah already running
//   - Removals and files outside the inbox root are ignored
type EventProcessor struct {
	runner Runner
	rec    domain.Recitation
	inbox  string
	logger *slog.Logger

	mu         sync.Mutex
	surahLocks map[int]*sync.Mutex
}

// NewEventProcessor creates an EventProcessor for files landing in inbox.
func NewEventProcessor(runner Runner, rec domain.Recitation, inbox string, l *slog.Logger) *EventProcessor {
	return &EventProcessor{
		runner:     runner,
		rec:        rec,
		inbox:      filepath.Clean(inbox),
		logger:     logger.OrDiscard(l),
		surahLocks: make(map[int]*sync.Mutex),
	}
}

// ProcessEvent handles one file event. It returns the surah run when the event
// caused one, or nil when the event was skipped.
func (ep *EventProcessor) ProcessEvent(ctx context.Context, event watcher.Event) (*domain.SurahRun, error) {
	ep.logger.Debug("processing event",
		"type", event.Type.String(),
		"path", event.Path,
	)

	if !event.Settled() {
		return nil, nil
	}
	if filepath.Dir(event.Path) != ep.inbox {
		ep.logger.Debug("ignoring file outside inbox root", "path", event.Path)
		return nil, nil
	}

	fileType, surah := classifyFile(event.Path)
	switch fileType {
	case FileTypeSegments:
	case FileTypeSilences:
		segments := filepath.Join(ep.inbox, transcribe.SegmentsFileName(surah))
		if _, err := os.Stat(segments); errors.Is(err, fs.ErrNotExist) {
			ep.logger.Debug("silences arrived before segments, waiting", "surah", surah)
			return nil, nil
		}
	default:
		ep.logger.Debug("ignoring file", "path", event.Path, "type", fileType.String())
		return nil, nil
	}

	lock := ep.surahLock(surah)
	if !lock.TryLock() {
		ep.logger.Debug("surah already running, skipping", "surah", surah, "path", event.Path)
		return nil, nil
	}
	defer lock.Unlock()

	ep.logger.Info("inbox file ready, aligning surah",
		"surah", surah,
		"file", filepath.Base(event.Path),
		"type", fileType.String(),
	)
	return ep.runner.RunSurah(ctx, ep.rec, surah)
}

// Run consumes events until ctx is done, handling each in its own goroutine.
// It waits for in-flight runs before returning.
func (ep *EventProcessor) Run(ctx context.Context, events <-chan watcher.Event) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			wg.Go(func() {
				run, err := ep.ProcessEvent(ctx, event)
				switch {
				case err != nil:
					ep.logger.Warn("surah run interrupted", "path", event.Path, "error", err)
				case run != nil && run.State == domain.SurahManualReview:
					ep.logger.Warn("surah needs manual review",
						"surah", run.SurahNum,
						"reason", run.Reason,
					)
				}
			})
		}
	}
}

// surahLock gets or creates the mutex of a surah.
func (ep *EventProcessor) surahLock(surah int) *sync.Mutex {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	lock, ok := ep.surahLocks[surah]
	if !ok {
		lock = &sync.Mutex{}
		ep.surahLocks[surah] = lock
	}
	return lock
}
