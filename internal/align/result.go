package align

import (
	"fmt"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/normalize"
	"github.com/munajjam/munajjam/internal/similarity"
)

// span describes a run of units [first, last] assigned to one ayah.
type span struct {
	first, last int
	text        string
	discarded   int
}

// newResult scores a span against its ayah and applies the confidence rules.
func (o Options) newResult(ayah domain.Ayah, units []domain.Segment, s span, strategy domain.Strategy) domain.AlignmentResult {
	r := domain.AlignmentResult{
		Ayah:          ayah,
		Start:         units[s.first].Start,
		End:           units[s.last].End,
		Transcript:    s.text,
		Similarity:    similarity.Ratio(s.text, ayah.Text),
		OverlapStatus: domain.OverlapNone,
		Strategy:      strategy,
		FirstUnit:     s.first,
		LastUnit:      s.last,
	}
	if s.discarded > 0 {
		r.OverlapStatus = domain.OverlapDeduplicated
	}
	o.classify(&r)
	return r
}

// classify sets Status and LowConfidence from the result's similarity.
func (o Options) classify(r *domain.AlignmentResult) {
	r.Status = domain.StatusPass
	r.LowConfidence = r.Similarity < o.QualityThreshold
	if r.Similarity < o.MinSimilarity {
		r.Status = domain.StatusFail
		r.AddNote(fmt.Sprintf("no confident match: best span scored %.3f", r.Similarity))
	}
}

// ayahWords caches normalized word counts for the greedy window rule.
func ayahWords(ayahs []domain.Ayah) []int {
	counts := make([]int, len(ayahs))
	for i, a := range ayahs {
		counts[i] = normalize.WordCount(a.Text)
	}
	return counts
}
