package align

import "github.com/munajjam/munajjam/internal/domain"

// FixOverlaps walks results in order and enforces Start <= End and
// End[k] <= Start[k+1]. When an ayah starts inside its predecessor, the
// predecessor is trimmed to that start; when it starts before the
// predecessor does, the ayah itself is pushed to the predecessor's end.
// Touched results are marked adjusted. It returns how many were touched.
func FixOverlaps(results []domain.AlignmentResult) int {
	fixed := 0
	for k := range results {
		cur := &results[k]
		if cur.End < cur.Start {
			cur.End = cur.Start
			markAdjusted(cur)
			fixed++
		}
		if k == 0 {
			continue
		}
		prev := &results[k-1]
		if cur.Start >= prev.End {
			continue
		}
		if cur.Start >= prev.Start {
			prev.End = cur.Start
			markAdjusted(prev)
		} else {
			cur.Start = prev.End
			cur.End = max(cur.End, cur.Start)
			markAdjusted(cur)
		}
		fixed++
	}
	return fixed
}

func markAdjusted(r *domain.AlignmentResult) {
	if r.OverlapStatus != domain.OverlapAdjusted {
		r.OverlapStatus = domain.OverlapAdjusted
		r.AddNote("timing adjusted for overlap")
	}
}
