// Package align maps transcribed recitation segments onto the canonical ayahs
// of a surah, producing a start and end time per ayah.
//
// Three strategies are available: a single-pass greedy aligner, a global
// dynamic-programming aligner, and a hybrid that runs the DP and repairs
// weak ayahs with greedy, split-and-restitch, and cascade recovery.
package align

import (
	"context"
	"fmt"
	"time"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/validation"
)

// Input is everything one alignment call needs. Silences are optional.
type Input struct {
	Segments []domain.Segment `json:"segments" validate:"dive"`
	Ayahs    []domain.Ayah    `json:"ayahs" validate:"dive"`
	Silences []domain.Silence `json:"silences,omitempty" validate:"dive"`
}

// Output is the aligner's result for one surah.
type Output struct {
	Results []domain.AlignmentResult `json:"results"`
	Stats   domain.AlignmentStats    `json:"stats"`
}

// Aligner runs the configured strategy and post-processing.
type Aligner struct {
	opts Options
}

// New validates opts and returns an Aligner.
func New(opts Options) (*Aligner, error) {
	if err := validation.Validate(opts); err != nil {
		return nil, err
	}
	return &Aligner{opts: opts}, nil
}

// Options returns the aligner's configuration.
func (a *Aligner) Options() Options {
	return a.opts
}

// Align aligns in.Segments to in.Ayahs. Results are in ayah order and never
// outnumber the ayahs. The DP strategy returns ErrNoPartition when the
// segments cannot cover every ayah.
func (a *Aligner) Align(ctx context.Context, in Input) (*Output, error) {
	out := &Output{Stats: domain.AlignmentStats{Total: len(in.Ayahs)}}
	if len(in.Segments) == 0 || len(in.Ayahs) == 0 {
		return out, nil
	}

	started := time.Now()
	var err error
	switch a.opts.Strategy {
	case domain.StrategyGreedy:
		out.Results = NewGreedy(in.Segments, in.Ayahs, a.opts).Run()
	case domain.StrategyDP:
		out.Results, err = DP(ctx, in.Segments, in.Ayahs, a.opts)
		if err != nil {
			return nil, fmt.Errorf("dp align: %w", err)
		}
		for _, r := range out.Results {
			if r.LowConfidence {
				out.Stats.StillLow++
			} else {
				out.Stats.DPKept++
			}
		}
	default:
		out.Results, out.Stats, err = Hybrid(ctx, in.Segments, in.Ayahs, in.Silences, a.opts)
		if err != nil {
			return nil, fmt.Errorf("hybrid align: %w", err)
		}
	}

	if a.opts.FixOverlaps {
		FixOverlaps(out.Results)
	}

	a.opts.logger().Debug("alignment complete",
		"strategy", a.opts.Strategy,
		"ayahs", len(in.Ayahs),
		"aligned", len(out.Results),
		"avg_similarity", domain.AverageSimilarity(out.Results),
		"took", time.Since(started),
	)
	return out, nil
}
