package align

import (
	"slices"
	"strings"

	"github.com/munajjam/munajjam/internal/domain"
)

// refineUnits returns the DP's units. Segments with word timestamps are split
// at every pause of at least gapSplit seconds (when gapSplit > 0), and then,
// while there are fewer units than ayahs, the unit with the widest internal
// word gap is split in two. Segments without word timestamps are kept whole.
func refineUnits(segments []domain.Segment, ayahCount int, gapSplit float64) []domain.Segment {
	units := make([]domain.Segment, 0, len(segments))
	for _, seg := range segments {
		if gapSplit > 0 {
			units = append(units, splitAtGaps(seg, gapSplit)...)
		} else {
			units = append(units, seg)
		}
	}

	for len(units) < ayahCount {
		best, at := -1, 0
		var widest float64
		for i, u := range units {
			if k, gap := widestGap(u); k > 0 && (best < 0 || gap > widest) {
				best, at, widest = i, k, gap
			}
		}
		if best < 0 {
			break
		}
		left, right := splitAt(units[best], at)
		units = slices.Replace(units, best, best+1, left, right)
	}
	return units
}

// widestGap returns the word index that starts after the widest pause inside
// seg, or 0 when seg cannot be split.
func widestGap(seg domain.Segment) (int, float64) {
	at := 0
	var widest float64
	for k := 1; k < len(seg.Words); k++ {
		gap := seg.Words[k].Start - seg.Words[k-1].End
		if at == 0 || gap > widest {
			at, widest = k, gap
		}
	}
	return at, widest
}

func splitAtGaps(seg domain.Segment, minGap float64) []domain.Segment {
	var out []domain.Segment
	rest := seg
	for {
		cut := 0
		for k := 1; k < len(rest.Words); k++ {
			if rest.Words[k].Start-rest.Words[k-1].End >= minGap {
				cut = k
				break
			}
		}
		if cut == 0 {
			return append(out, rest)
		}
		left, right := splitAt(rest, cut)
		out = append(out, left)
		rest = right
	}
}

// splitAt cuts seg before word k. Both halves take their text and times
// from their words; the outer bounds keep the segment's own times.
func splitAt(seg domain.Segment, k int) (domain.Segment, domain.Segment) {
	left, right := seg, seg
	left.Words = seg.Words[:k:k]
	right.Words = seg.Words[k:]
	left.Text = joinWords(left.Words)
	right.Text = joinWords(right.Words)
	left.End = seg.Words[k-1].End
	right.Start = seg.Words[k].Start
	return left, right
}

func joinWords(words []domain.WordTimestamp) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Word
	}
	return strings.Join(parts, " ")
}
