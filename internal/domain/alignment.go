package domain

import "fmt"

// Strategy selects an alignment algorithm.
type Strategy string

const (
	StrategyGreedy Strategy = "greedy"
	StrategyDP     Strategy = "dp"
	StrategyHybrid Strategy = "hybrid"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyGreedy, StrategyDP, StrategyHybrid:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown strategy %q (must be greedy, dp, or hybrid)", s)
	}
}

// Status is the per-ayah verdict written to the log and the sink.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// OverlapStatus records what overlap handling touched a result.
type OverlapStatus string

const (
	// OverlapNone means the span needed no dedup or timing fix.
	OverlapNone OverlapStatus = "none"
	// OverlapDeduplicated means repeated words were dropped while merging segments.
	OverlapDeduplicated OverlapStatus = "deduplicated"
	// OverlapAdjusted means the span's times were clamped against a neighbour.
	OverlapAdjusted OverlapStatus = "adjusted"
)

// AlignmentResult is the timestamp span chosen for one ayah.
type AlignmentResult struct {
	Ayah          Ayah          `json:"ayah"`
	Start         float64       `json:"start"`
	End           float64       `json:"end"`
	Similarity    float64       `json:"similarity"`
	Transcript    string        `json:"transcript"`
	Status        Status        `json:"status"`
	LowConfidence bool          `json:"low_confidence,omitempty"`
	OverlapStatus OverlapStatus `json:"overlap_status"`
	Strategy      Strategy      `json:"strategy"`
	Notes         string        `json:"notes,omitempty"`

	// FirstUnit and LastUnit index the (inclusive) span of input units that
	// produced this result.
	FirstUnit int `json:"-"`
	LastUnit  int `json:"-"`
}

// Duration returns the span length in seconds.
func (r AlignmentResult) Duration() float64 {
	return r.End - r.Start
}

// AddNote appends a note, separated by "; ".
func (r *AlignmentResult) AddNote(note string) {
	if r.Notes == "" {
		r.Notes = note
		return
	}
	r.Notes += "; " + note
}

// AlignmentStats counts where each ayah's result came from.
type AlignmentStats struct {
	Total            int `json:"total"`
	DPKept           int `json:"dp_kept"`
	FallbackUsed     int `json:"fallback_used"`
	SplitImproved    int `json:"split_improved"`
	CascadeRecovered int `json:"cascade_recovered"`
	StillLow         int `json:"still_low"`
}

// AverageSimilarity returns the mean similarity of results, 0 for none.
func AverageSimilarity(results []AlignmentResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Similarity
	}
	return sum / float64(len(results))
}
