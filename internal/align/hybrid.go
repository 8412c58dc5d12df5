package align

import (
	"cmp"
	"context"
	"errors"
	"math"
	"slices"

	"github.com/munajjam/munajjam/internal/domain"
)

type source int

const (
	fromDP source = iota
	fromGreedy
	fromSplit
	fromCascade
)

// Hybrid runs the DP aligner and repairs its weak spots. When the DP finds
// no covering partition the whole surah is aligned greedily. Otherwise each
// ayah below QualityThreshold is retried by split-and-restitch (long ayahs
// only) and by a greedy pass over the DP span's neighbourhood; the best
// scoring candidate wins. Runs of consecutive weak ayahs then go through
// cascade recovery when enabled.
//
// Every replacement stays inside the slot its neighbours leave free, so the
// DP's ordered, non-overlapping spans survive the repairs.
func Hybrid(ctx context.Context, segments []domain.Segment, ayahs []domain.Ayah, silences []domain.Silence, opts Options) ([]domain.AlignmentResult, domain.AlignmentStats, error) {
	stats := domain.AlignmentStats{Total: len(ayahs)}
	if len(segments) == 0 || len(ayahs) == 0 {
		return nil, stats, nil
	}
	log := opts.logger()

	units := refineUnits(segments, len(ayahs), opts.WordGapSplit)
	silences = sortedSilences(silences)

	results, err := dpAlign(ctx, units, ayahs, opts)
	sources := make([]source, len(ayahs))
	switch {
	case errors.Is(err, ErrNoPartition):
		log.Debug("dp found no partition, falling back to greedy", "units", len(units), "ayahs", len(ayahs))
		results = NewGreedy(units, ayahs, opts).Run()
		for k := range results {
			sources[k] = fromGreedy
		}
	case err != nil:
		return nil, stats, err
	default:
		for k := range results {
			if results[k].Similarity >= opts.QualityThreshold {
				continue
			}
			sl := slotOf(results, k, len(units))
			best, src := results[k], fromDP
			if isLongAyah(best) {
				if r, ok := opts.restitch(units, silences, best); ok && sl.holds(r) {
					best, src = r, fromSplit
				}
			}
			if r, ok := opts.localGreedy(units, ayahs, k, results[k], sl); ok && r.Similarity > best.Similarity {
				best, src = r, fromGreedy
			}
			results[k], sources[k] = best, src
		}
	}

	if opts.Cascade {
		var replaced []int
		results, replaced = opts.recoverCascades(units, silences, results)
		for _, k := range replaced {
			sources[k] = fromCascade
		}
		if len(replaced) > 0 {
			log.Debug("cascade recovery replaced ayahs", "count", len(replaced))
		}
	}

	for k, r := range results {
		switch sources[k] {
		case fromGreedy:
			stats.FallbackUsed++
		case fromSplit:
			stats.SplitImproved++
		case fromCascade:
			stats.CascadeRecovered++
		default:
			if r.Similarity >= opts.QualityThreshold {
				stats.DPKept++
			} else {
				stats.StillLow++
			}
		}
	}
	return results, stats, nil
}

// slot bounds what ayah k may take: the units between its neighbours' spans
// and the time between them. The time bounds never cut into the ayah's own
// current span.
type slot struct {
	first, last int // inclusive unit indices
	start, end  float64
}

func slotOf(results []domain.AlignmentResult, k, nunits int) slot {
	return regionSlot(results, k, k+1, nunits)
}

// regionSlot is the slot shared by results [lo, hi).
func regionSlot(results []domain.AlignmentResult, lo, hi, nunits int) slot {
	s := slot{first: 0, last: nunits - 1, start: math.Inf(-1), end: math.Inf(1)}
	if lo > 0 {
		prev := results[lo-1]
		s.first = prev.LastUnit + 1
		s.start = min(prev.End, results[lo].Start)
	}
	if hi < len(results) {
		next := results[hi]
		s.last = next.FirstUnit - 1
		s.end = max(next.Start, results[hi-1].End)
	}
	return s
}

func (s slot) holds(r domain.AlignmentResult) bool {
	return r.FirstUnit >= s.first && r.LastUnit <= s.last && r.FirstUnit <= r.LastUnit &&
		r.Start >= s.start && r.End <= s.end
}

// localGreedy re-runs the greedy aligner for ayah k starting one unit
// before, at, and after its DP span, letting it read up to Neighborhood
// units past the span. Starts and reads are clipped to the slot. The best
// first result is returned.
func (o Options) localGreedy(units []domain.Segment, ayahs []domain.Ayah, k int, cur domain.AlignmentResult, sl slot) (domain.AlignmentResult, bool) {
	end := min(sl.last+1, cur.LastUnit+1+o.Neighborhood)

	var best domain.AlignmentResult
	found := false
	for _, start := range []int{cur.FirstUnit - 1, cur.FirstUnit, cur.FirstUnit + 1} {
		if start < sl.first || start >= end {
			continue
		}
		got := NewGreedy(units[start:end], ayahs[k:], o).Run()
		if len(got) == 0 {
			continue
		}
		r := got[0]
		r.FirstUnit += start
		r.LastUnit += start
		if !sl.holds(r) {
			continue
		}
		if !found || r.Similarity > best.Similarity {
			best, found = r, true
		}
	}
	if found {
		best.AddNote("greedy fallback")
	}
	return best, found
}

func sortedSilences(silences []domain.Silence) []domain.Silence {
	out := slices.Clone(silences)
	slices.SortFunc(out, func(a, b domain.Silence) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return out
}
