package providers

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/samber/do/v2"

	"github.com/munajjam/munajjam/internal/config"
	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/logger"
	"github.com/munajjam/munajjam/internal/pipeline"
	"github.com/munajjam/munajjam/internal/processor"
	"github.com/munajjam/munajjam/internal/watcher"
)

// ProvideEventProcessor provides the inbox event processor. Finished surahs
// are announced on the event stream.
func ProvideEventProcessor(i do.Injector) (*processor.EventProcessor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	controller := do.MustInvoke[*pipeline.Controller](i)
	rec := do.MustInvoke[domain.Recitation](i)
	events := do.MustInvoke[*EventManagerHandle](i)

	return processor.NewEventProcessor(controller.WithProgress(events.PublishSurahRun), rec, cfg.Data.InboxPath, log.Logger), nil
}

// FileWatcherHandle owns the inbox watcher and the goroutine feeding the
// event processor.
type FileWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Shutdown cancels in-flight surah runs and waits for them.
func (h *FileWatcherHandle) Shutdown() error {
	h.cancel()
	err := h.Watcher.Stop()
	h.wg.Wait()
	return err
}

// ProvideFileWatcher watches the inbox and hands settled files to the event
// processor until shutdown.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	eventProcessor := do.MustInvoke[*processor.EventProcessor](i)

	if err := os.MkdirAll(cfg.Data.InboxPath, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox: %w", err)
	}

	w, err := watcher.New(log.Logger, watcher.Options{IgnoreHidden: true})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(cfg.Data.InboxPath); err != nil {
		_ = w.Stop()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &FileWatcherHandle{Watcher: w, cancel: cancel}

	h.wg.Go(func() {
		if err := w.Start(ctx); err != nil {
			log.Error("File watcher error", "error", err)
		}
	})
	h.wg.Go(func() {
		if err := eventProcessor.Run(ctx, w.Events()); err != nil {
			log.Error("Event processor error", "error", err)
		}
	})
	h.wg.Go(func() {
		for {
			select {
			case err := <-w.Errors():
				log.Warn("file watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	})

	log.Info("Watching inbox", "path", cfg.Data.InboxPath)
	return h, nil
}
