package align

import (
	"math"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/normalize"
	"github.com/munajjam/munajjam/internal/similarity"
)

// Cascade recovery tuning.
const (
	cascadeThreshold    = 0.7
	cascadeMinRun       = 2
	cascadeContext      = 1
	cascadeMaxSpan      = 6
	cascadeSlack        = 0.5
	cascadeSilenceSnap  = 0.3
	cascadeSilenceBonus = 0.15
	cascadeMinGain      = 0.08
)

// run is a half-open range [start, end) of result indices.
type run struct{ start, end int }

// findCascades returns runs of at least minRun consecutive results scoring
// below threshold.
func findCascades(results []domain.AlignmentResult, threshold float64, minRun int) []run {
	var runs []run
	for i := 0; i < len(results); {
		if results[i].Similarity >= threshold {
			i++
			continue
		}
		start := i
		for i < len(results) && results[i].Similarity < threshold {
			i++
		}
		if i-start >= minRun {
			runs = append(runs, run{start, i})
		}
	}
	return runs
}

// recoverCascades re-aligns each cascade, padded by one ayah of context on
// both sides, against the units inside its time window. Spans are joined
// without dedup, may absorb up to cascadeMaxSpan units, and earn a bonus for
// ending where a silence begins. A recovery replaces the region only when
// the cascade's mean similarity rises by more than cascadeMinGain and no
// previously usable ayah degrades past its guard. It returns the updated
// results and the indices that were replaced.
func (o Options) recoverCascades(units []domain.Segment, silences []domain.Silence, results []domain.AlignmentResult) ([]domain.AlignmentResult, []int) {
	runs := findCascades(results, cascadeThreshold, cascadeMinRun)
	if len(runs) == 0 {
		return results, nil
	}

	out := append([]domain.AlignmentResult(nil), results...)
	var replaced []int
	for i := len(runs) - 1; i >= 0; i-- {
		c := runs[i]
		lo := max(0, c.start-cascadeContext)
		hi := min(len(out), c.end+cascadeContext)

		sl := regionSlot(out, lo, hi, len(units))
		fresh, ok := o.realignRegion(units, silences, out[lo:hi], sl)
		if !ok || !acceptRecovery(out[lo:hi], fresh, c.start-lo, c.end-lo) {
			continue
		}
		copy(out[lo:hi], fresh)
		for k := lo; k < hi; k++ {
			replaced = append(replaced, k)
		}
	}
	return out, replaced
}

// realignRegion only considers units inside sl, so the region cannot reach
// into the ayahs around it.
func (o Options) realignRegion(units []domain.Segment, silences []domain.Silence, region []domain.AlignmentResult, sl slot) ([]domain.AlignmentResult, bool) {
	from := region[0].Start
	to := region[len(region)-1].End

	first, last := -1, -1
	for idx, u := range units {
		if idx < sl.first || idx > sl.last {
			continue
		}
		if u.Start >= from-cascadeSlack && u.End <= to+cascadeSlack {
			if first < 0 {
				first = idx
			}
			last = idx
		}
	}
	if first < 0 {
		return nil, false
	}
	sub := units[first : last+1]
	nu, na := len(sub), len(region)
	if nu < na {
		return nil, false
	}

	// silenceEnd[i] is true when a span ending before unit i stops at a pause.
	silenceEnd := make([]bool, nu+1)
	for _, sil := range silences {
		if sil.Start < from || sil.Start > to {
			continue
		}
		for idx, u := range sub {
			if math.Abs(u.End-sil.Start) < cascadeSilenceSnap {
				silenceEnd[idx+1] = true
			}
		}
	}

	ayahNorm := make([]string, na)
	for j, r := range region {
		ayahNorm[j] = normalize.Arabic(r.Ayah.Text)
	}
	plain := func(k, i int) string {
		texts := make([]string, 0, i-k)
		for _, u := range sub[k:i] {
			texts = append(texts, u.Text)
		}
		return similarity.Join(texts...)
	}

	negInf := math.Inf(-1)
	value := make([][]float64, nu+1)
	back := make([][]int, nu+1)
	for i := range value {
		value[i] = make([]float64, na+1)
		back[i] = make([]int, na+1)
		for j := range value[i] {
			value[i][j] = negInf
		}
	}
	value[0][0] = 0

	for j := 1; j <= na; j++ {
		for i := j; i <= nu; i++ {
			for l := 1; l <= cascadeMaxSpan && i-l >= j-1; l++ {
				k := i - l
				if math.IsInf(value[k][j-1], -1) {
					continue
				}
				v := value[k][j-1] + similarity.RatioNormalized(normalize.Arabic(plain(k, i)), ayahNorm[j-1])
				if silenceEnd[i] {
					v += cascadeSilenceBonus
				}
				if v > value[i][j] {
					value[i][j] = v
					back[i][j] = k
				}
			}
		}
	}

	// The region need not consume every unit in its window.
	end := -1
	for i := na; i <= nu; i++ {
		if !math.IsInf(value[i][na], -1) && (end < 0 || value[i][na] > value[end][na]) {
			end = i
		}
	}
	if end < 0 {
		return nil, false
	}

	fresh := make([]domain.AlignmentResult, na)
	for i, j := end, na; j > 0; j-- {
		k := back[i][j]
		r := domain.AlignmentResult{
			Ayah:          region[j-1].Ayah,
			Start:         sub[k].Start,
			End:           sub[i-1].End,
			Transcript:    plain(k, i),
			OverlapStatus: domain.OverlapNone,
			Strategy:      domain.StrategyHybrid,
			FirstUnit:     first + k,
			LastUnit:      first + i - 1,
		}
		r.Similarity = similarity.Ratio(r.Transcript, r.Ayah.Text)
		o.classify(&r)
		r.AddNote("cascade recovery")
		if !sl.holds(r) {
			return nil, false
		}
		fresh[j-1] = r
		i = k
	}
	return fresh, true
}

// acceptRecovery guards a region replacement. Good ayahs (>= 0.75) may lose
// at most 0.08 and must stay at or above 0.70; mediocre ones (>= 0.5) may
// lose at most 0.12. The cascade itself, [cs, ce) within the region, must
// gain more than cascadeMinGain on average.
func acceptRecovery(old, fresh []domain.AlignmentResult, cs, ce int) bool {
	for k := range old {
		was, now := old[k].Similarity, fresh[k].Similarity
		drop := was - now
		switch {
		case was >= 0.75 && (drop > 0.08 || now < 0.70):
			return false
		case was >= 0.5 && drop > 0.12:
			return false
		}
	}

	var oldSum, newSum float64
	for k := cs; k < ce; k++ {
		oldSum += old[k].Similarity
		newSum += fresh[k].Similarity
	}
	n := float64(ce - cs)
	return newSum/n > oldSum/n+cascadeMinGain
}
