package align

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munajjam/munajjam/internal/domain"
)

func TestDP_TiesPreferShorterSpan(t *testing.T) {
	segments := segmentsOf("الله", "الله", "الله")
	ayahs := ayahsOf("الله", "الله")

	results, err := DP(context.Background(), segments, ayahs, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 0, results[0].FirstUnit)
	assert.Equal(t, 1, results[0].LastUnit)
	assert.Equal(t, domain.OverlapDeduplicated, results[0].OverlapStatus)
	assert.Equal(t, 2, results[1].FirstUnit)
	assert.Equal(t, 2, results[1].LastUnit)
	for _, r := range results {
		assert.InDelta(t, 1.0, r.Similarity, 1e-9)
		assert.Equal(t, domain.StrategyDP, r.Strategy)
	}
}

func TestDP_CoversEveryUnit(t *testing.T) {
	segments := segmentsOf("قل هو", "الله احد", "الله الصمد", "لم يلد", "ولم يولد")
	ayahs := ayahsOf("قل هو الله احد", "الله الصمد", "لم يلد ولم يولد")

	results, err := DP(context.Background(), segments, ayahs, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, [2]int{0, 1}, [2]int{results[0].FirstUnit, results[0].LastUnit})
	assert.Equal(t, [2]int{2, 2}, [2]int{results[1].FirstUnit, results[1].LastUnit})
	assert.Equal(t, [2]int{3, 4}, [2]int{results[2].FirstUnit, results[2].LastUnit})
	assert.Equal(t, 0.0, results[0].Start)
	assert.Equal(t, 9.0, results[0].End)
	assert.Equal(t, 24.0, results[2].End)
}

func TestDP_NoPartition(t *testing.T) {
	_, err := DP(context.Background(), segmentsOf("قل هو الله احد", "الله الصمد"), ayahsOf("قل هو الله احد", "الله الصمد", "لم يلد ولم يولد"), DefaultOptions())
	assert.ErrorIs(t, err, ErrNoPartition)

	opts := DefaultOptions()
	opts.MaxSpan = 2
	_, err = DP(context.Background(), segmentsOf("قل", "هو", "الله"), ayahsOf("قل هو الله"), opts)
	assert.ErrorIs(t, err, ErrNoPartition)
}

func TestDP_SplitsAtWordGapWhenShortOfUnits(t *testing.T) {
	seg := domain.Segment{
		Text:  "قل هو الله احد الله الصمد",
		Start: 0,
		End:   8,
		Words: []domain.WordTimestamp{
			{Word: "قل", Start: 0, End: 1},
			{Word: "هو", Start: 1, End: 2},
			{Word: "الله", Start: 2, End: 3},
			{Word: "احد", Start: 3, End: 4},
			{Word: "الله", Start: 6, End: 7},
			{Word: "الصمد", Start: 7, End: 8},
		},
	}

	results, err := DP(context.Background(), []domain.Segment{seg}, ayahsOf("قل هو الله احد", "الله الصمد"), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 0.0, results[0].Start)
	assert.Equal(t, 4.0, results[0].End)
	assert.Equal(t, 6.0, results[1].Start)
	assert.Equal(t, 8.0, results[1].End)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.InDelta(t, 1.0, results[1].Similarity, 1e-9)
}

func TestDP_LowConfidenceIsFlaggedNotDropped(t *testing.T) {
	results, err := DP(context.Background(), segmentsOf("قل هو الله", "بسم الله"), ayahsOf("قل هو الله احد", "الله الصمد"), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.InDelta(t, 20.0/24.0, results[0].Similarity, 1e-9)
	assert.True(t, results[0].LowConfidence)
	assert.Equal(t, domain.StatusPass, results[0].Status)
	assert.True(t, results[1].LowConfidence)
}

func TestDP_ProgressAndCancel(t *testing.T) {
	segments, ayahs := fatiha()

	var calls []int
	opts := DefaultOptions()
	opts.OnProgress = func(done, total int) {
		assert.Equal(t, len(ayahs), total)
		calls = append(calls, done)
	}
	_, err := DP(context.Background(), segments, ayahs, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = DP(ctx, segments, ayahs, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRefineUnits_GapSplit(t *testing.T) {
	seg := domain.Segment{
		Text: "a b c",
		End:  10,
		Words: []domain.WordTimestamp{
			{Word: "a", Start: 0, End: 1},
			{Word: "b", Start: 3, End: 4},
			{Word: "c", Start: 4.2, End: 10},
		},
	}

	units := refineUnits([]domain.Segment{seg}, 1, 1.5)
	require.Len(t, units, 2)
	assert.Equal(t, "a", units[0].Text)
	assert.Equal(t, "b c", units[1].Text)
	assert.Equal(t, 1.0, units[0].End)
	assert.Equal(t, 3.0, units[1].Start)

	assert.Len(t, refineUnits([]domain.Segment{{Text: "x"}}, 3, 0), 1, "segments without words cannot split")
}
