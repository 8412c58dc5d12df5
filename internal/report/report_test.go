package report

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munajjam/munajjam/internal/domain"
)

var rec = domain.Recitation{ID: "0b6f7c1e-5a44-4d7a-9a53-1f3c2f1f4b11", ReciterName: "Badr Al-Turki"}

func ikhlasResults() []domain.AlignmentResult {
	texts := []string{"قل هو الله أحد", "الله الصمد", "لم يلد ولم يولد", "ولم يكن له كفوا أحد"}
	results := make([]domain.AlignmentResult, len(texts))
	for i, text := range texts {
		results[i] = domain.AlignmentResult{
			Ayah:          domain.Ayah{SurahID: 112, Number: i + 1, Text: text},
			Start:         float64(i) * 3,
			End:           float64(i)*3 + 2.5,
			Similarity:    0.95 - float64(i)*0.1,
			Transcript:    text,
			Status:        domain.StatusPass,
			OverlapStatus: domain.OverlapNone,
			Strategy:      domain.StrategyHybrid,
		}
	}
	results[3].Status = domain.StatusFail
	results[3].Notes = "no confident match"
	return results
}

func TestLogPath(t *testing.T) {
	got := LogPath("data", rec, 112)
	assert.Equal(t, filepath.Join("data", "Badr Al-Turki-"+rec.ID, "112-الإخلاص", "Logging.csv"), got)
}

func TestWriteLog(t *testing.T) {
	path := LogPath(t.TempDir(), rec, 112)
	require.NoError(t, WriteLog(path, ikhlasResults()))

	// A second attempt replaces the file instead of appending.
	require.NoError(t, WriteLog(path, ikhlasResults()[:2]))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, logHeader, rows[0])
	assert.Equal(t, []string{
		"112", "2", "الله الصمد", "الله الصمد", "3", "5.5", "0.85", "pass", "", "none",
	}, rows[2])
}

func TestSurahOutput_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	out := NewSurahOutput(rec, 112, 4, ikhlasResults())

	assert.Equal(t, "الإخلاص", out.SurahName)
	assert.Equal(t, 4, out.AlignedAyahs)
	assert.InDelta(t, 0.8, out.AvgSimilarity, 1e-9)

	path, err := WriteOutput(dir, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "surah_112.json"), path)

	got, err := ReadOutput(path)
	require.NoError(t, err)
	assert.Equal(t, out, got)
}

func TestNewSurahOutput_Rounds(t *testing.T) {
	results := ikhlasResults()[:1]
	results[0].Similarity = 0.98765
	out := NewSurahOutput(rec, 112, 4, results)

	assert.InDelta(t, 0.988, out.Ayahs[0].Similarity, 1e-12)
	assert.InDelta(t, 0.988, out.AvgSimilarity, 1e-12)
}

func TestLoadOutputs(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []int{114, 1} {
		_, err := WriteOutput(dir, &SurahOutput{SurahID: n})
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "surah_002.json"), []byte("{broken"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "surah_002_segments.json"), []byte("[]"), 0o644))

	outputs, errs := LoadOutputs(dir)
	require.Len(t, outputs, 2)
	assert.Equal(t, 1, outputs[0].SurahID)
	assert.Equal(t, 114, outputs[1].SurahID)
	assert.Len(t, errs, 1)
}

func scoresOutput(surah int, sims ...float64) *SurahOutput {
	out := &SurahOutput{SurahID: surah, TotalAyahs: len(sims), AlignedAyahs: len(sims)}
	for i, s := range sims {
		out.Ayahs = append(out.Ayahs, AyahOutput{AyahNumber: i + 1, Similarity: s})
	}
	return out
}

func TestAnalyze(t *testing.T) {
	outputs := []*SurahOutput{
		scoresOutput(1, 1.0, 0.9, 0.8, 0.7, 0.6),
		scoresOutput(2, 0.5, 0.4, 0.3, 0.2, 0.1),
		scoresOutput(3),
	}

	a := Analyze(outputs)

	assert.Equal(t, 10, a.Count)
	assert.InDelta(t, 0.55, a.Mean, 1e-9)
	assert.Equal(t, AyahScore{SurahID: 2, AyahNumber: 5, Similarity: 0.1}, a.Min)
	assert.Equal(t, AyahScore{SurahID: 1, AyahNumber: 1, Similarity: 1.0}, a.Max)

	require.Len(t, a.Percentiles, len(percentilePoints))
	assert.InDelta(t, 0.5, a.Percentiles[4].Value, 1e-9) // median

	counts := map[string]int{}
	total := 0
	for _, b := range a.Bands {
		counts[b.Label] = b.Count
		total += b.Count
	}
	assert.Equal(t, 10, total)
	assert.Equal(t, 4, counts["critical"])
	assert.Equal(t, 2, counts["poor"])
	assert.Equal(t, 1, counts["needs improvement"])
	assert.Equal(t, 1, counts["excellent"])

	require.Len(t, a.Surahs, 2)
	assert.Equal(t, 3, a.Surahs[0].Below90)
	assert.Equal(t, 1, a.Surahs[0].Below70)
	assert.InDelta(t, 0.1, a.Surahs[1].MinSimilarity, 1e-9)

	assert.Equal(t, 2, a.WorstSurahs(1)[0].SurahID)
	assert.Equal(t, 2, a.MostLowScores(5)[0].SurahID)
	assert.Len(t, a.MostLowScores(5), 2)
}

func TestAnalyze_Empty(t *testing.T) {
	a := Analyze(nil)
	assert.Zero(t, a.Count)
	assert.Empty(t, a.Percentiles)
}

type fakeLocator map[string]int

func (f fakeLocator) Locate(_ context.Context, _ int, text string) (int, bool, error) {
	n, ok := f[text]
	return n, ok, nil
}

func TestInvestigate(t *testing.T) {
	out := &SurahOutput{
		SurahID:   9,
		SurahName: "التوبة",
		Ayahs: []AyahOutput{
			// 3 words over 2s, clean.
			{AyahNumber: 1, Start: 0, End: 2, Text: "براءه من الله", Similarity: 0.95},
			// 12 words in 3s right after a 4s gap.
			{AyahNumber: 2, Start: 6, End: 9, Text: "ا ب ت ث ج ح خ د ذ ر ز س", Similarity: 0.6, Transcript: "ayah three words"},
			// Overlaps the previous ayah and continues the low run.
			{AyahNumber: 3, Start: 8, End: 30, Text: "فسيحوا في الارض", Similarity: 0.4, Transcript: "ayah three words"},
			{AyahNumber: 4, Start: 30.5, End: 33, Text: "واذان من الله ورسوله", Similarity: 0.9},
			{AyahNumber: 5, Start: 33.5, End: 36, Text: "الا الذين عاهدتم", Similarity: 0.7},
			{AyahNumber: 6, Start: 36.5, End: 38, Text: "وان احد", Similarity: 0.92},
		},
	}
	loc := fakeLocator{"ayah three words": 3}

	inv, err := Investigate(context.Background(), out, loc)
	require.NoError(t, err)

	assert.Equal(t, 6, inv.Total)
	assert.Equal(t, 3, inv.LowScoring)

	a2 := inv.Ayahs[1]
	assert.True(t, a2.HasIssue(IssueShortDuration))
	assert.True(t, a2.HasIssue(IssueGapBefore))
	assert.True(t, a2.HasIssue(IssueMisplaced))
	assert.False(t, a2.HasIssue(IssueCascade))
	require.NotNil(t, a2.PrevSimilarity)
	assert.InDelta(t, 0.95, *a2.PrevSimilarity, 1e-9)

	a3 := inv.Ayahs[2]
	assert.True(t, a3.HasIssue(IssueOverlapBefore))
	assert.True(t, a3.HasIssue(IssueCascade))
	assert.True(t, a3.HasIssue(IssueCritical))
	assert.True(t, a3.HasIssue(IssueSlowPace))
	assert.True(t, a3.HasIssue(IssueLongDuration))
	assert.False(t, a3.HasIssue(IssueMisplaced), "transcript matches its own ayah")

	assert.Nil(t, inv.Ayahs[0].PrevSimilarity)
	assert.Nil(t, inv.Ayahs[5].NextSimilarity)

	p := inv.Patterns
	assert.Equal(t, []Span{{First: 2, Last: 3}}, p.CascadeSequences)
	assert.Equal(t, []int{5}, p.IsolatedFailures)
	assert.Equal(t, []int{2}, p.GapIssues)
	assert.Equal(t, []int{2, 3}, p.DurationMismatch)
	assert.Equal(t, []int{3}, p.CriticalFailures)
	assert.Equal(t, []int{2}, p.Misplaced)

	require.Len(t, inv.Worst, 3)
	assert.Equal(t, 3, inv.Worst[0].AyahNumber)
	assert.Equal(t, 5, inv.Worst[2].AyahNumber)
}

func TestInvestigate_NoLocator(t *testing.T) {
	out := scoresOutput(1, 0.3, 0.3)
	inv, err := Investigate(context.Background(), out, nil)
	require.NoError(t, err)
	assert.Empty(t, inv.Patterns.Misplaced)
	assert.Len(t, inv.Patterns.CascadeSequences, 1)
}
