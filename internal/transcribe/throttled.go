package transcribe

import (
	"context"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/ratelimit"
)

// Throttled limits how often next is called per recitation.
type Throttled struct {
	next    Transcriber
	limiter *ratelimit.KeyedRateLimiter
}

// NewThrottled wraps next with limiter, keyed by recitation id.
func NewThrottled(next Transcriber, limiter *ratelimit.KeyedRateLimiter) *Throttled {
	return &Throttled{next: next, limiter: limiter}
}

// Transcribe implements Transcriber.
func (t *Throttled) Transcribe(ctx context.Context, req Request) (*domain.Transcription, error) {
	if err := t.limiter.Wait(ctx, req.Recitation.ID); err != nil {
		return nil, err
	}
	return t.next.Transcribe(ctx, req)
}
