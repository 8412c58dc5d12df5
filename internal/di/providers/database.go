package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/munajjam/munajjam/internal/config"
	"github.com/munajjam/munajjam/internal/logger"
	"github.com/munajjam/munajjam/internal/store"
	"github.com/munajjam/munajjam/internal/store/sqlite"
)

// StoreHandle is the SQLite store that aligned timestamps and surah runs are
// written to. The container closes it last among the handles that use it.
type StoreHandle struct {
	*sqlite.Store
}

func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	path := cfg.Data.DatabasePath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("timestamp store: %w", err)
	}
	db, err := sqlite.Open(path, log.Logger)
	if err != nil {
		return nil, err
	}
	log.Debug("Timestamp store open", "path", path)
	return &StoreHandle{Store: db}, nil
}

// TranscriptionCacheHandle keeps surah transcriptions between runs so a retry
// or a rerun does not pay for transcription twice.
type TranscriptionCacheHandle struct {
	*store.Store
}

func (h *TranscriptionCacheHandle) Shutdown() error {
	return h.Close()
}

func ProvideTranscriptionCache(i do.Injector) (*TranscriptionCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	cache, err := store.Open(store.Options{
		Path:   cfg.Data.CachePath,
		TTL:    cfg.Pipeline.CacheTTL,
		Logger: log.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &TranscriptionCacheHandle{Store: cache}, nil
}
