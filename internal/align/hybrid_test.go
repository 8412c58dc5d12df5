package align

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munajjam/munajjam/internal/domain"
)

func statsSum(s domain.AlignmentStats) int {
	return s.DPKept + s.FallbackUsed + s.SplitImproved + s.CascadeRecovered + s.StillLow
}

func TestHybrid_FallsBackToGreedyWithoutPartition(t *testing.T) {
	segments := segmentsOf("قل هو الله احد", "الله الصمد")
	ayahs := ayahsOf("قل هو الله احد", "الله الصمد", "لم يلد ولم يولد")

	results, stats, err := Hybrid(context.Background(), segments, ayahs, nil, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.FallbackUsed)
	assert.Equal(t, len(results), statsSum(stats))
	for _, r := range results {
		assert.Equal(t, domain.StrategyGreedy, r.Strategy)
	}
}

func TestHybrid_RestitchesLongAyah(t *testing.T) {
	segments := []domain.Segment{
		{Text: "قل هو الله", Start: 0, End: 20},
		{Text: "الله احد", Start: 22, End: 40},
	}
	ayahs := ayahsOf("قل هو الله الله احد")
	silences := []domain.Silence{{Start: 20.5, End: 21.5}}

	results, stats, err := Hybrid(context.Background(), segments, ayahs, silences, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.Equal(t, "قل هو الله الله احد", results[0].Transcript)
	assert.Equal(t, domain.StrategyHybrid, results[0].Strategy)
	assert.Equal(t, 1, stats.SplitImproved)
	assert.Equal(t, 1, statsSum(stats))
}

func TestHybrid_KeepsConfidentDP(t *testing.T) {
	segments, ayahs := fatiha()

	results, stats, err := Hybrid(context.Background(), segments, ayahs, nil, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, results, 7)
	assert.Equal(t, domain.AlignmentStats{Total: 7, DPKept: 7}, stats)
}

func TestHybrid_Empty(t *testing.T) {
	results, stats, err := Hybrid(context.Background(), nil, ayahsOf("الله"), nil, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1, stats.Total)
}

func TestRestitch_RequiresTwoChunks(t *testing.T) {
	units := []domain.Segment{
		{Text: "قل هو الله", Start: 0, End: 20},
		{Text: "الله احد", Start: 22, End: 40},
	}
	cur := DefaultOptions().newResult(ayahsOf("قل هو الله الله احد")[0], units, span{first: 0, last: 1, text: "قل هو الله احد", discarded: 1}, domain.StrategyDP)

	_, ok := DefaultOptions().restitch(units, nil, cur)
	assert.False(t, ok, "no silences")

	_, ok = DefaultOptions().restitch(units, []domain.Silence{{Start: 30, End: 30.1}}, cur)
	assert.False(t, ok, "silence too short")

	r, ok := DefaultOptions().restitch(units, []domain.Silence{{Start: 20.5, End: 21.5}}, cur)
	require.True(t, ok)
	assert.Contains(t, r.Notes, "restitched")
}

func TestChunkAtSilences(t *testing.T) {
	units := segmentsOf("a", "b", "c", "d")
	// Units: [0,4] [5,9] [10,14] [15,19].

	chunks := chunkAtSilences(units, []domain.Silence{{Start: 4.2, End: 4.8}, {Start: 12, End: 12.5}})

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1)
	assert.Len(t, chunks[1], 2, "unit c straddles the second silence and closes the chunk")
	assert.Len(t, chunks[2], 1)
}

func TestFindCascades(t *testing.T) {
	scores := []float64{0.9, 0.5, 0.6, 0.95, 0.4, 0.9, 0.3, 0.2, 0.1}
	results := make([]domain.AlignmentResult, len(scores))
	for i, s := range scores {
		results[i].Similarity = s
	}

	assert.Equal(t, []run{{1, 3}, {6, 9}}, findCascades(results, cascadeThreshold, cascadeMinRun))
}

func TestAcceptRecovery(t *testing.T) {
	mk := func(scores ...float64) []domain.AlignmentResult {
		out := make([]domain.AlignmentResult, len(scores))
		for i, s := range scores {
			out[i].Similarity = s
		}
		return out
	}

	tests := []struct {
		name  string
		old   []domain.AlignmentResult
		fresh []domain.AlignmentResult
		want  bool
	}{
		{"clear gain", mk(0.9, 0.4, 0.5, 0.9), mk(0.9, 0.8, 0.8, 0.88), true},
		{"gain too small", mk(0.9, 0.4, 0.5, 0.9), mk(0.9, 0.45, 0.5, 0.9), false},
		{"good ayah drops too far", mk(0.9, 0.4, 0.5, 0.9), mk(0.8, 0.9, 0.9, 0.9), false},
		{"mediocre ayah drops too far", mk(0.6, 0.4, 0.5, 0.9), mk(0.45, 0.9, 0.9, 0.9), false},
		{"weak ayah may drop", mk(0.3, 0.4, 0.5, 0.9), mk(0.1, 0.9, 0.9, 0.9), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, acceptRecovery(tt.old, tt.fresh, 1, 3))
		})
	}
}

func TestRecoverCascades_ReplacesDriftedRegion(t *testing.T) {
	opts := DefaultOptions()
	units := segmentsOf("قل هو الله احد", "الله الصمد", "لم يلد ولم يولد", "ولم يكن له كفوا احد")
	ayahs := ayahsOf("قل هو الله احد", "الله الصمد", "لم يلد ولم يولد", "ولم يكن له كفوا احد")

	// Ayahs 2 to 4 each carry the text of the unit before their own.
	drifted := []domain.AlignmentResult{
		opts.newResult(ayahs[0], units, span{first: 0, last: 0, text: units[0].Text}, domain.StrategyDP),
		opts.newResult(ayahs[1], units, span{first: 1, last: 1, text: units[0].Text}, domain.StrategyDP),
		opts.newResult(ayahs[2], units, span{first: 2, last: 2, text: units[1].Text}, domain.StrategyDP),
		opts.newResult(ayahs[3], units, span{first: 3, last: 3, text: units[2].Text}, domain.StrategyDP),
	}

	out, replaced := opts.recoverCascades(units, nil, drifted)

	assert.Equal(t, []int{0, 1, 2, 3}, replaced)
	require.Len(t, out, 4)
	for i, r := range out {
		assert.InDelta(t, 1.0, r.Similarity, 1e-9, "ayah %d", i+1)
		assert.Equal(t, i, r.FirstUnit)
	}
}

func TestHybrid_RepairsStayBetweenNeighbours(t *testing.T) {
	ayahs := ayahsOf("بسم الله الرحمن الرحيم", "الحمد لله رب العالمين", "الرحمن الرحيم")

	segmentations := map[string][]domain.Segment{
		"second ayah opens early": segmentsOf("بسم الله الرحمن الرحيم الحمد لله رب", "العالمين", "الرحمن الرحيم"),
		"first ayah runs long":    segmentsOf("بسم الله الرحمن الرحيم الحمد", "لله", "رب العالمين الرحمن الرحيم"),
		"one segment per ayah":    segmentsOf("بسم الله الرحمن الرحيم", "الحمد لله رب العالمين", "الرحمن الرحيم"),
	}

	for name, segments := range segmentations {
		for _, cascade := range []bool{false, true} {
			opts := DefaultOptions()
			opts.Cascade = cascade

			dp, err := DP(context.Background(), segments, ayahs, opts)
			require.NoError(t, err, name)
			results, _, err := Hybrid(context.Background(), segments, ayahs, nil, opts)
			require.NoError(t, err, name)
			require.Len(t, results, len(dp), name)

			for k, r := range results {
				assert.Equal(t, ayahs[k].Number, r.Ayah.Number, "%s: ayah order", name)
				assert.LessOrEqual(t, r.FirstUnit, r.LastUnit, "%s: ayah %d", name, k+1)
				if dp[k].Duration() > 0 {
					assert.Positive(t, r.Duration(), "%s (cascade=%v): ayah %d collapsed", name, cascade, k+1)
				}
				if k == 0 {
					continue
				}
				prev := results[k-1]
				assert.Greater(t, r.FirstUnit, prev.LastUnit, "%s (cascade=%v): ayah %d reuses units", name, cascade, k+1)
				assert.LessOrEqual(t, prev.End, r.Start, "%s (cascade=%v): ayah %d starts before ayah %d ends", name, cascade, k+1, k)
			}
		}
	}
}

func TestSlot_Holds(t *testing.T) {
	units := segmentsOf("a", "b", "c", "d", "e")
	// Units: [0,4] [5,9] [10,14] [15,19] [20,24].
	at := func(first, last int) domain.AlignmentResult {
		return domain.AlignmentResult{FirstUnit: first, LastUnit: last, Start: units[first].Start, End: units[last].End}
	}
	results := []domain.AlignmentResult{at(0, 0), at(1, 2), at(3, 4)}

	sl := slotOf(results, 1, len(units))
	assert.Equal(t, 1, sl.first)
	assert.Equal(t, 2, sl.last)

	tests := []struct {
		name string
		r    domain.AlignmentResult
		want bool
	}{
		{"own span", at(1, 2), true},
		{"prefix", at(1, 1), true},
		{"takes previous ayah's unit", at(0, 1), false},
		{"takes next ayah's unit", at(2, 3), false},
		{"empty", domain.AlignmentResult{FirstUnit: 2, LastUnit: 1}, false},
		{"ends after next ayah starts", domain.AlignmentResult{FirstUnit: 1, LastUnit: 2, Start: 5, End: 16}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sl.holds(tt.r))
		})
	}

	edge := regionSlot(results, 0, 2, len(units))
	assert.Equal(t, 0, edge.first)
	assert.Equal(t, 2, edge.last)
	assert.True(t, edge.holds(at(0, 2)))
	assert.False(t, edge.holds(at(0, 3)))
}
