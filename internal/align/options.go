package align

import (
	"log/slog"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/logger"
)

// Default tuning values.
const (
	DefaultQualityThreshold = 0.85
	DefaultMinSimilarity    = 0.6
	DefaultMaxSpan          = 8
	DefaultNeighborhood     = 2

	// Greedy boundary thresholds.
	LastWordsCommit  = 0.7
	FirstWordsCommit = 0.8

	longAyahWords   = 30
	longAyahSeconds = 30.0
	restitchMargin  = 0.05
)

// ProgressFunc receives (done, total) as the DP aligner fills ayah columns.
type ProgressFunc func(done, total int)

// Options configures an Aligner.
type Options struct {
	Strategy domain.Strategy `json:"strategy" validate:"strategy"`

	// QualityThreshold flags DP results below it as low confidence and
	// triggers hybrid fallback.
	QualityThreshold float64 `json:"quality_threshold" validate:"gte=0,lte=1"`

	// MinSimilarity is the floor below which a result is emitted with
	// status fail.
	MinSimilarity float64 `json:"min_similarity" validate:"gte=0,lte=1"`

	// MaxSpan bounds how many units one ayah may absorb in the DP.
	MaxSpan int `json:"max_span" validate:"gte=1,lte=64"`

	// WordGapSplit, when positive, splits word-timestamped segments at
	// pauses of at least this many seconds before the DP runs.
	WordGapSplit float64 `json:"word_gap_split" validate:"gte=0"`

	// Neighborhood is how many units past a DP span the hybrid's local
	// greedy re-run may consume.
	Neighborhood int `json:"neighborhood" validate:"gte=0,lte=16"`

	// FixOverlaps enforces End[k] <= Start[k+1] on the final results.
	FixOverlaps bool `json:"fix_overlaps"`

	// Cascade enables recovery of consecutive low-scoring ayahs in hybrid
	// mode.
	Cascade bool `json:"cascade"`

	OnProgress ProgressFunc `json:"-"`
	Logger     *slog.Logger `json:"-"`
}

// DefaultOptions returns hybrid alignment with the standard thresholds.
func DefaultOptions() Options {
	return Options{
		Strategy:         domain.StrategyHybrid,
		QualityThreshold: DefaultQualityThreshold,
		MinSimilarity:    DefaultMinSimilarity,
		MaxSpan:          DefaultMaxSpan,
		Neighborhood:     DefaultNeighborhood,
		FixOverlaps:      true,
		Cascade:          true,
	}
}

func (o Options) progress(done, total int) {
	if o.OnProgress != nil {
		o.OnProgress(done, total)
	}
}

func (o Options) logger() *slog.Logger {
	return logger.OrDiscard(o.Logger)
}
