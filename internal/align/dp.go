package align

import (
	"context"
	"errors"
	"math"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/normalize"
	"github.com/munajjam/munajjam/internal/overlap"
	"github.com/munajjam/munajjam/internal/similarity"
)

// ErrNoPartition is returned when the units cannot be split into one
// contiguous, non-empty span per ayah that covers every unit.
var ErrNoPartition = errors.New("no covering partition of units onto ayahs")

// DP partitions segments into one contiguous span per ayah, maximizing the
// summed similarity. See dpAlign for the recurrence.
func DP(ctx context.Context, segments []domain.Segment, ayahs []domain.Ayah, opts Options) ([]domain.AlignmentResult, error) {
	units := refineUnits(segments, len(ayahs), opts.WordGapSplit)
	return dpAlign(ctx, units, ayahs, opts)
}

// spanTable holds the overlap-merged text of every span of up to maxSpan
// units, indexed [start][length-1].
type spanTable struct {
	text      [][]string
	norm      [][]string
	discarded [][]int
}

func buildSpans(units []domain.Segment, maxSpan int) spanTable {
	t := spanTable{
		text:      make([][]string, len(units)),
		norm:      make([][]string, len(units)),
		discarded: make([][]int, len(units)),
	}
	for k := range units {
		n := min(maxSpan, len(units)-k)
		t.text[k] = make([]string, n)
		t.norm[k] = make([]string, n)
		t.discarded[k] = make([]int, n)

		text, dropped := units[k].Text, 0
		for l := range n {
			if l > 0 {
				var d int
				text, d = overlap.Merge(text, units[k+l].Text)
				dropped += d
			}
			t.text[k][l] = text
			t.norm[k][l] = normalize.Arabic(text)
			t.discarded[k][l] = dropped
		}
	}
	return t
}

// dpAlign fills value[i][j], the best total similarity of assigning units
// [0, i) to ayahs [0, j):
//
//	value[i][j] = max over k of value[k][j-1] + sim(units[k:i], ayah[j-1])
//
// with 1 <= i-k <= MaxSpan. Span lengths are tried shortest first and only a
// strictly better score replaces the incumbent, so ties keep the shorter
// span. The answer is read back from (len(units), len(ayahs)).
func dpAlign(ctx context.Context, units []domain.Segment, ayahs []domain.Ayah, opts Options) ([]domain.AlignmentResult, error) {
	nu, na := len(units), len(ayahs)
	if na == 0 {
		return nil, nil
	}
	if nu < na {
		return nil, ErrNoPartition
	}
	maxSpan := max(opts.MaxSpan, 1)

	spans := buildSpans(units, maxSpan)
	ayahNorm := make([]string, na)
	for j, a := range ayahs {
		ayahNorm[j] = normalize.Arabic(a.Text)
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
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Each remaining ayah needs at least one unit.
		for i := j; i <= nu-(na-j); i++ {
			for l := 1; l <= maxSpan && i-l >= j-1; l++ {
				k := i - l
				prev := value[k][j-1]
				if math.IsInf(prev, -1) {
					continue
				}
				v := prev + similarity.RatioNormalized(spans.norm[k][l-1], ayahNorm[j-1])
				if v > value[i][j] {
					value[i][j] = v
					back[i][j] = k
				}
			}
		}
		opts.progress(j, na)
	}

	if math.IsInf(value[nu][na], -1) {
		return nil, ErrNoPartition
	}

	results := make([]domain.AlignmentResult, na)
	for i, j := nu, na; j > 0; j-- {
		k := back[i][j]
		l := i - k
		results[j-1] = opts.newResult(ayahs[j-1], units, span{
			first:     k,
			last:      i - 1,
			text:      spans.text[k][l-1],
			discarded: spans.discarded[k][l-1],
		}, domain.StrategyDP)
		i = k
	}
	return results, nil
}
