// Package transcribe produces the timed segments and silences the aligner
// consumes. Speech recognition itself runs outside this process: a
// Transcriber either reads segment files written by an ASR job or runs an
// external helper command. Decorators add caching and per-reciter throttling.
package transcribe

import (
	"context"

	"github.com/munajjam/munajjam/internal/domain"
)

// Request identifies the audio to transcribe.
type Request struct {
	Recitation domain.Recitation
	Surah      int
	AudioPath  string

	// Fresh asks for a new transcription, skipping any cached copy. The
	// retry controller sets it on every attempt after the first.
	Fresh bool
}

// Transcriber turns one surah's audio into segments and silences.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (*domain.Transcription, error)
}

// Func adapts a plain function to Transcriber.
type Func func(ctx context.Context, req Request) (*domain.Transcription, error)

// Transcribe calls f.
func (f Func) Transcribe(ctx context.Context, req Request) (*domain.Transcription, error) {
	return f(ctx, req)
}
