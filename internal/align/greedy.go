package align

import (
	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/overlap"
	"github.com/munajjam/munajjam/internal/similarity"
)

// GreedyState is the aligner's position between two steps. It is a value:
// Step never mutates its input.
type GreedyState struct {
	// Seg is the last segment merged into Text; First is the first.
	Seg   int
	First int
	// Ayah is the ayah currently being closed.
	Ayah      int
	Text      string
	Start     float64
	End       float64
	Discarded int
}

// Greedy is the single-pass pointer aligner. It consumes segments left to
// right and closes one ayah boundary at a time.
type Greedy struct {
	segments []domain.Segment
	ayahs    []domain.Ayah
	words    []int
	opts     Options
}

// NewGreedy prepares a greedy run over segments and ayahs.
func NewGreedy(segments []domain.Segment, ayahs []domain.Ayah, opts Options) *Greedy {
	return &Greedy{
		segments: segments,
		ayahs:    ayahs,
		words:    ayahWords(ayahs),
		opts:     opts,
	}
}

// Init returns the state with the accumulator seeded from the first segment.
func (g *Greedy) Init() GreedyState {
	return g.seed(0, 0)
}

// Done reports whether either pointer is exhausted.
func (g *Greedy) Done(s GreedyState) bool {
	return s.Seg >= len(g.segments) || s.Ayah >= len(g.ayahs)
}

// Step performs one transition. It returns the next state and, when an ayah
// boundary was committed, the result for the ayah that was closed.
func (g *Greedy) Step(s GreedyState) (GreedyState, *domain.AlignmentResult) {
	if g.Done(s) {
		return s, nil
	}

	ayah := g.ayahs[s.Ayah]
	n := g.window(s.Ayah)
	hasNextSeg := s.Seg+1 < len(g.segments)

	if similarity.LastWords(s.Text, ayah.Text, n) >= LastWordsCommit {
		return g.commit(s, "")
	}

	if hasNextSeg && s.Ayah+1 < len(g.ayahs) {
		next := g.segments[s.Seg+1].Text
		if similarity.FirstWords(next, g.ayahs[s.Ayah+1].Text, n) > FirstWordsCommit {
			return g.commit(s, "")
		}
	}

	if hasNextSeg {
		seg := g.segments[s.Seg+1]
		merged, discarded := overlap.Merge(s.Text, seg.Text)
		next := s
		next.Seg++
		next.Text = merged
		next.End = seg.End
		next.Discarded += discarded
		return next, nil
	}

	return g.commit(s, "forced commit at end of segments")
}

// Run steps from Init until done and returns the committed results.
func (g *Greedy) Run() []domain.AlignmentResult {
	results := make([]domain.AlignmentResult, 0, len(g.ayahs))
	if len(g.segments) == 0 || len(g.ayahs) == 0 {
		return results
	}
	for s := g.Init(); !g.Done(s); {
		var r *domain.AlignmentResult
		s, r = g.Step(s)
		if r != nil {
			results = append(results, *r)
		}
	}
	return results
}

// window is the boundary-check word count, taken from the ayah after the
// current one: 3 when it has three or more words, 2 for exactly two, else 1.
func (g *Greedy) window(ayah int) int {
	if ayah+1 >= len(g.words) {
		return 1
	}
	switch w := g.words[ayah+1]; {
	case w >= 3:
		return 3
	case w == 2:
		return 2
	default:
		return 1
	}
}

func (g *Greedy) commit(s GreedyState, note string) (GreedyState, *domain.AlignmentResult) {
	r := g.opts.newResult(g.ayahs[s.Ayah], g.segments, span{
		first:     s.First,
		last:      s.Seg,
		text:      s.Text,
		discarded: s.Discarded,
	}, domain.StrategyGreedy)
	if note != "" {
		r.AddNote(note)
	}
	return g.seed(s.Seg+1, s.Ayah+1), &r
}

// seed starts a fresh accumulator at segment seg for ayah.
func (g *Greedy) seed(seg, ayah int) GreedyState {
	s := GreedyState{Seg: seg, First: seg, Ayah: ayah}
	if seg < len(g.segments) {
		s.Text = g.segments[seg].Text
		s.Start = g.segments[seg].Start
		s.End = g.segments[seg].End
	}
	return s
}
