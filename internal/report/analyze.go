package report

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Percentile is one point of the score distribution.
type Percentile struct {
	P     float64 `json:"p"`
	Value float64 `json:"value"`
}

// Band counts scores in [Low, High).
type Band struct {
	Label   string  `json:"label"`
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// SurahStats summarizes one surah's scores.
type SurahStats struct {
	SurahID       int     `json:"surah_id"`
	SurahName     string  `json:"surah_name"`
	TotalAyahs    int     `json:"total_ayahs"`
	AlignedAyahs  int     `json:"aligned_ayahs"`
	AvgSimilarity float64 `json:"avg_similarity"`
	MinSimilarity float64 `json:"min_similarity"`
	MaxSimilarity float64 `json:"max_similarity"`
	Below90       int     `json:"below_90"`
	Below80       int     `json:"below_80"`
	Below70       int     `json:"below_70"`
}

// AyahScore locates one score.
type AyahScore struct {
	SurahID    int     `json:"surah_id"`
	AyahNumber int     `json:"ayah_number"`
	Similarity float64 `json:"similarity"`
}

// Analysis is the corpus-wide view of alignment quality.
type Analysis struct {
	Count       int          `json:"count"`
	Mean        float64      `json:"mean"`
	StdDev      float64      `json:"std_dev"`
	Min         AyahScore    `json:"min"`
	Max         AyahScore    `json:"max"`
	Percentiles []Percentile `json:"percentiles"`
	Bands       []Band       `json:"bands"`
	Surahs      []SurahStats `json:"surahs"`
}

//nolint:gochecknoglobals // Fixed reporting points
var percentilePoints = []float64{0.01, 0.05, 0.10, 0.25, 0.50, 0.75, 0.90, 0.95, 0.99}

// The last band's upper bound is above 1 so a perfect score is counted.
//
//nolint:gochecknoglobals // Fixed reporting bands
var bands = []Band{
	{Label: "critical", Low: 0, High: 0.5},
	{Label: "poor", Low: 0.5, High: 0.7},
	{Label: "needs improvement", Low: 0.7, High: 0.8},
	{Label: "acceptable", Low: 0.8, High: 0.9},
	{Label: "good", Low: 0.9, High: 0.95},
	{Label: "excellent", Low: 0.95, High: 1.01},
}

// Analyze computes score statistics over every ayah of outputs.
func Analyze(outputs []*SurahOutput) Analysis {
	var (
		a      Analysis
		scores []float64
	)

	for _, out := range outputs {
		if len(out.Ayahs) == 0 {
			continue
		}
		sims := make([]float64, 0, len(out.Ayahs))
		for _, ayah := range out.Ayahs {
			sims = append(sims, ayah.Similarity)

			score := AyahScore{SurahID: out.SurahID, AyahNumber: ayah.AyahNumber, Similarity: ayah.Similarity}
			if len(scores) == 0 || ayah.Similarity < a.Min.Similarity {
				a.Min = score
			}
			if len(scores) == 0 || ayah.Similarity > a.Max.Similarity {
				a.Max = score
			}
			scores = append(scores, ayah.Similarity)
		}
		a.Surahs = append(a.Surahs, surahStats(out, sims))
	}

	a.Count = len(scores)
	if a.Count == 0 {
		return a
	}

	a.Mean = stat.Mean(scores, nil)
	if a.Count > 1 {
		a.StdDev = stat.StdDev(scores, nil)
	}

	sorted := slices.Clone(scores)
	slices.Sort(sorted)
	for _, p := range percentilePoints {
		a.Percentiles = append(a.Percentiles, Percentile{
			P:     p,
			Value: stat.Quantile(p, stat.Empirical, sorted, nil),
		})
	}

	for _, b := range bands {
		for _, s := range scores {
			if s >= b.Low && s < b.High {
				b.Count++
			}
		}
		b.Percent = float64(b.Count) / float64(a.Count) * 100
		a.Bands = append(a.Bands, b)
	}

	return a
}

func surahStats(out *SurahOutput, sims []float64) SurahStats {
	s := SurahStats{
		SurahID:       out.SurahID,
		SurahName:     out.SurahName,
		TotalAyahs:    out.TotalAyahs,
		AlignedAyahs:  out.AlignedAyahs,
		AvgSimilarity: stat.Mean(sims, nil),
		MinSimilarity: floats.Min(sims),
		MaxSimilarity: floats.Max(sims),
	}
	if s.TotalAyahs == 0 {
		s.TotalAyahs = len(sims)
	}
	if s.AlignedAyahs == 0 {
		s.AlignedAyahs = len(sims)
	}
	for _, v := range sims {
		if v < 0.9 {
			s.Below90++
		}
		if v < 0.8 {
			s.Below80++
		}
		if v < 0.7 {
			s.Below70++
		}
	}
	return s
}

// WorstSurahs returns up to n surahs with the lowest average score.
func (a Analysis) WorstSurahs(n int) []SurahStats {
	sorted := slices.Clone(a.Surahs)
	slices.SortStableFunc(sorted, func(x, y SurahStats) int {
		switch {
		case x.AvgSimilarity < y.AvgSimilarity:
			return -1
		case x.AvgSimilarity > y.AvgSimilarity:
			return 1
		}
		return 0
	})
	return sorted[:min(n, len(sorted))]
}

// MostLowScores returns up to n surahs with the most ayahs below 0.9.
func (a Analysis) MostLowScores(n int) []SurahStats {
	sorted := slices.Clone(a.Surahs)
	slices.SortStableFunc(sorted, func(x, y SurahStats) int {
		return y.Below90 - x.Below90
	})
	return sorted[:min(n, len(sorted))]
}
