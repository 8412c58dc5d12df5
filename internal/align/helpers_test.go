package align

import (
	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/quran"
)

func ayahsOf(texts ...string) []domain.Ayah {
	out := make([]domain.Ayah, len(texts))
	for i, t := range texts {
		out[i] = domain.Ayah{SurahID: 112, Number: i + 1, Text: t}
	}
	return out
}

// segmentsOf places each text in its own segment, 4s long with 1s gaps.
func segmentsOf(texts ...string) []domain.Segment {
	out := make([]domain.Segment, len(texts))
	for i, t := range texts {
		start := float64(i) * 5
		out[i] = domain.Segment{ID: i + 1, Text: t, Start: start, End: start + 4}
	}
	return out
}

func fatiha() ([]domain.Segment, []domain.Ayah) {
	ayahs, err := quran.Fatiha().Surah(1)
	if err != nil {
		panic(err)
	}
	segments := segmentsOf(
		"بسم الله الرحمن الرحيم",
		"الحمد لله رب العالمين",
		"الرحمن الرحيم",
		"مالك يوم الدين",
		"اياك نعبد واياك نستعين",
		"اهدنا الصراط المستقيم",
		"صراط الذين انعمت عليهم غير المغضوب عليهم ولا الضالين",
	)
	return segments, ayahs
}
