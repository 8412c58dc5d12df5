package transcribe

import (
	"context"
	"errors"
	"log/slog"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/logger"
	"github.com/munajjam/munajjam/internal/store"
)

// Cache is the subset of the transcription store Cached needs.
type Cache interface {
	GetTranscription(recitationID string, surah int) (*domain.Transcription, error)
	PutTranscription(recitationID string, t *domain.Transcription) error
}

// Cached serves transcriptions from a cache and fills it from next on a miss.
// A Fresh request always goes to next and overwrites the cached copy.
type Cached struct {
	next   Transcriber
	cache  Cache
	logger *slog.Logger
}

// NewCached wraps next with cache.
func NewCached(next Transcriber, cache Cache, l *slog.Logger) *Cached {
	return &Cached{next: next, cache: cache, logger: logger.OrDiscard(l)}
}

// Transcribe implements Transcriber.
func (c *Cached) Transcribe(ctx context.Context, req Request) (*domain.Transcription, error) {
	if !req.Fresh {
		t, err := c.cache.GetTranscription(req.Recitation.ID, req.Surah)
		switch {
		case err == nil:
			c.logger.Debug("transcription cache hit", "surah", req.Surah)
			return t, nil
		case !errors.Is(err, store.ErrNotFound):
			// A broken cache entry is treated as a miss.
			c.logger.Warn("transcription cache read failed", "surah", req.Surah, "error", err)
		}
	}

	t, err := c.next.Transcribe(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := c.cache.PutTranscription(req.Recitation.ID, t); err != nil {
		c.logger.Warn("transcription cache write failed", "surah", req.Surah, "error", err)
	}
	return t, nil
}
