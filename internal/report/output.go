package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/quran"
)

// AyahOutput is one aligned ayah in a surah output file.
type AyahOutput struct {
	AyahNumber int     `json:"ayah_number"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
	Transcript string  `json:"transcript,omitempty"`
}

// SurahOutput is the content of surah_XXX.json.
type SurahOutput struct {
	SurahID       int          `json:"surah_id"`
	SurahName     string       `json:"surah_name"`
	Reciter       string       `json:"reciter"`
	TotalAyahs    int          `json:"total_ayahs"`
	AlignedAyahs  int          `json:"aligned_ayahs"`
	AvgSimilarity float64      `json:"avg_similarity"`
	Ayahs         []AyahOutput `json:"ayahs"`
}

var outputFilePattern = regexp.MustCompile(`^surah_\d{3}\.json$`)

// OutputFileName returns surah_XXX.json.
func OutputFileName(surah int) string {
	return fmt.Sprintf("surah_%03d.json", surah)
}

// NewSurahOutput summarizes results for one surah. Scores are rounded to
// three decimals.
func NewSurahOutput(rec domain.Recitation, surah, totalAyahs int, results []domain.AlignmentResult) *SurahOutput {
	out := &SurahOutput{
		SurahID:       surah,
		SurahName:     quran.SurahName(surah),
		Reciter:       rec.ReciterName,
		TotalAyahs:    totalAyahs,
		AlignedAyahs:  len(results),
		AvgSimilarity: round3(domain.AverageSimilarity(results)),
		Ayahs:         make([]AyahOutput, 0, len(results)),
	}
	for _, r := range results {
		out.Ayahs = append(out.Ayahs, AyahOutput{
			AyahNumber: r.Ayah.Number,
			Start:      r.Start,
			End:        r.End,
			Text:       r.Ayah.Text,
			Similarity: round3(r.Similarity),
			Transcript: r.Transcript,
		})
	}
	return out
}

// WriteOutput writes out to dir/surah_XXX.json and returns the path.
func WriteOutput(dir string, out *SurahOutput) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode output: %w", err)
	}
	path := filepath.Join(dir, OutputFileName(out.SurahID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, nil
}

// ReadOutput reads one surah output file.
func ReadOutput(path string) (*SurahOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out SurahOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &out, nil
}

// LoadOutputs reads every surah_*.json in dir, ordered by surah. Files that
// fail to decode are skipped and reported in the returned error slice.
func LoadOutputs(dir string) ([]*SurahOutput, []error) {
	paths, err := filepath.Glob(filepath.Join(dir, "surah_*.json"))
	if err != nil {
		return nil, []error{err}
	}

	var (
		outputs []*SurahOutput
		errs    []error
	)
	for _, p := range paths {
		if !outputFilePattern.MatchString(filepath.Base(p)) {
			continue
		}
		out, err := ReadOutput(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		outputs = append(outputs, out)
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].SurahID < outputs[j].SurahID })
	return outputs, errs
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
