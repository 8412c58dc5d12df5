// Package drift corrects cumulative timing error in a surah's alignment by
// pinning zone boundaries to independently detected silences.
package drift

import (
	"fmt"
	"math"

	"github.com/munajjam/munajjam/internal/domain"
)

// Options tunes drift correction.
type Options struct {
	// ZoneSize is the number of ayahs per zone.
	ZoneSize int `json:"zone_size" validate:"gte=1"`
	// SearchWindow bounds how far, in seconds, a silence may be from the
	// predicted boundary.
	SearchWindow float64 `json:"search_window" validate:"gt=0"`
	// Tolerance is the offset below which a boundary is left alone.
	Tolerance float64 `json:"tolerance" validate:"gte=0"`
	// MinSilence ignores pauses shorter than this many seconds.
	MinSilence float64 `json:"min_silence" validate:"gte=0"`
}

// DefaultOptions returns zones of 10 ayahs, a 5s window, and 0.5s tolerance.
func DefaultOptions() Options {
	return Options{
		ZoneSize:     10,
		SearchWindow: 5,
		Tolerance:    0.5,
		MinSilence:   0.3,
	}
}

// Anchor maps a predicted boundary time onto the silence that ends there.
type Anchor struct {
	Ayah      int     `json:"ayah"`
	Predicted float64 `json:"predicted"`
	Actual    float64 `json:"actual"`
}

// Offset is Actual minus Predicted.
func (a Anchor) Offset() float64 {
	return a.Actual - a.Predicted
}

// Report describes what Correct changed.
type Report struct {
	Anchors []Anchor `json:"anchors"`
	Shifted int      `json:"shifted"`
}

// Correct returns a corrected copy of results. For every zone boundary b
// (result index ZoneSize, 2*ZoneSize, ...), the predicted time is
// results[b].Start and the anchor is the end of the nearest qualifying
// silence. Boundaries off by more than Tolerance become warp anchors.
//
// Timestamps are remapped by a piecewise-linear warp through the fixed point
// (results[0].Start, results[0].Start) and each anchor; between two anchors
// the offset is distributed linearly, and past the last anchor its offset is
// applied as a constant shift. Anchors are kept strictly increasing on both
// axes, so the warp preserves the order of all timestamps.
func Correct(results []domain.AlignmentResult, silences []domain.Silence, opts Options) ([]domain.AlignmentResult, Report) {
	out := append([]domain.AlignmentResult(nil), results...)
	var report Report
	if len(out) == 0 || opts.ZoneSize < 1 {
		return out, report
	}

	origin := out[0].Start
	lastP, lastA := origin, origin
	for b := opts.ZoneSize; b < len(out); b += opts.ZoneSize {
		p := out[b].Start
		a, ok := nearestSilenceEnd(silences, p, opts.SearchWindow, opts.MinSilence)
		if !ok || math.Abs(a-p) <= opts.Tolerance {
			continue
		}
		if p <= lastP || a <= lastA {
			continue
		}
		report.Anchors = append(report.Anchors, Anchor{Ayah: out[b].Ayah.Number, Predicted: p, Actual: a})
		lastP, lastA = p, a
	}
	if len(report.Anchors) == 0 {
		return out, report
	}

	w := newWarp(origin, report.Anchors)
	for i := range out {
		start, end := w.at(out[i].Start), w.at(out[i].End)
		if start == out[i].Start && end == out[i].End {
			continue
		}
		out[i].Start, out[i].End = start, end
		report.Shifted++
	}
	for _, a := range report.Anchors {
		for i := range out {
			if out[i].Ayah.Number == a.Ayah {
				out[i].AddNote(fmt.Sprintf("drift anchor %+.2fs", a.Offset()))
				break
			}
		}
	}
	return out, report
}

// nearestSilenceEnd returns the end of the silence closest to t within
// window, ignoring silences shorter than minLen.
func nearestSilenceEnd(silences []domain.Silence, t, window, minLen float64) (float64, bool) {
	best, found := 0.0, false
	for _, s := range silences {
		if s.End-s.Start < minLen {
			continue
		}
		d := math.Abs(s.End - t)
		if d > window {
			continue
		}
		if !found || d < math.Abs(best-t) {
			best, found = s.End, true
		}
	}
	return best, found
}

type warp struct {
	from, to []float64
}

func newWarp(origin float64, anchors []Anchor) warp {
	w := warp{
		from: make([]float64, 0, len(anchors)+1),
		to:   make([]float64, 0, len(anchors)+1),
	}
	w.from = append(w.from, origin)
	w.to = append(w.to, origin)
	for _, a := range anchors {
		w.from = append(w.from, a.Predicted)
		w.to = append(w.to, a.Actual)
	}
	return w
}

func (w warp) at(t float64) float64 {
	n := len(w.from)
	switch {
	case t <= w.from[0]:
		return t
	case t >= w.from[n-1]:
		return t + (w.to[n-1] - w.from[n-1])
	}
	for i := 1; i < n; i++ {
		if t <= w.from[i] {
			frac := (t - w.from[i-1]) / (w.from[i] - w.from[i-1])
			return w.to[i-1] + frac*(w.to[i]-w.to[i-1])
		}
	}
	return t
}
