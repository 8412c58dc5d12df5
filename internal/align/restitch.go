package align

import (
	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/normalize"
	"github.com/munajjam/munajjam/internal/similarity"
)

const minSplitSilence = 0.2

func isLongAyah(r domain.AlignmentResult) bool {
	return normalize.WordCount(r.Ayah.Text) > longAyahWords || r.Duration() > longAyahSeconds
}

// restitch regroups a long ayah's units at the silences inside its span and
// rescores the plain concatenation, which keeps words the overlap merge may
// have discarded. It returns false unless the span breaks into at least two
// chunks and the new score beats the old one by restitchMargin.
func (o Options) restitch(units []domain.Segment, silences []domain.Silence, cur domain.AlignmentResult) (domain.AlignmentResult, bool) {
	if len(silences) == 0 {
		return cur, false
	}
	chunks := chunkAtSilences(units[cur.FirstUnit:cur.LastUnit+1], silencesWithin(silences, cur.Start, cur.End, minSplitSilence))
	if len(chunks) < 2 {
		return cur, false
	}

	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		for _, u := range chunk {
			texts = append(texts, u.Text)
		}
	}
	text := similarity.Join(texts...)
	score := similarity.Ratio(text, cur.Ayah.Text)
	if score <= cur.Similarity+restitchMargin {
		return cur, false
	}

	r := domain.AlignmentResult{
		Ayah:          cur.Ayah,
		Start:         cur.Start,
		End:           cur.End,
		Similarity:    score,
		Transcript:    text,
		OverlapStatus: domain.OverlapNone,
		Strategy:      domain.StrategyHybrid,
		FirstUnit:     cur.FirstUnit,
		LastUnit:      cur.LastUnit,
	}
	o.classify(&r)
	r.AddNote("restitched at silences")
	return r, true
}

// silencesWithin clips silences to [start, end] and keeps those at least
// minDur long.
func silencesWithin(silences []domain.Silence, start, end, minDur float64) []domain.Silence {
	var out []domain.Silence
	for _, s := range silences {
		if s.End <= start || s.Start >= end {
			continue
		}
		c := domain.Silence{Start: max(s.Start, start), End: min(s.End, end)}
		if c.End-c.Start >= minDur {
			out = append(out, c)
		}
	}
	return out
}

// chunkAtSilences groups consecutive units, closing a group at each silence.
// A unit straddling a silence ends its group.
func chunkAtSilences(units []domain.Segment, silences []domain.Silence) [][]domain.Segment {
	if len(units) == 0 {
		return nil
	}
	if len(silences) == 0 {
		return [][]domain.Segment{units}
	}

	var chunks [][]domain.Segment
	var cur []domain.Segment
	si := 0
	for _, u := range units {
		if si >= len(silences) {
			cur = append(cur, u)
			continue
		}
		sil := silences[si]
		switch {
		case u.End <= sil.Start:
			cur = append(cur, u)
		case u.Start >= sil.End:
			if len(cur) > 0 {
				chunks = append(chunks, cur)
			}
			cur = []domain.Segment{u}
			si++
		default:
			cur = append(cur, u)
			chunks = append(chunks, cur)
			cur = nil
			si++
		}
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}
