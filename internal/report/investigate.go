package report

import (
	"context"
	"fmt"
	"slices"

	"github.com/munajjam/munajjam/internal/normalize"
)

// IssueKind names a suspicious property of one aligned ayah.
type IssueKind string

const (
	IssueShortDuration IssueKind = "SHORT_DURATION"
	IssueLongDuration  IssueKind = "LONG_DURATION"
	IssueSlowPace      IssueKind = "SLOW_PACE"
	IssueFastPace      IssueKind = "FAST_PACE"
	IssueGapBefore     IssueKind = "GAP_BEFORE"
	IssueOverlapBefore IssueKind = "OVERLAP_BEFORE"
	IssueCascade       IssueKind = "CASCADE"
	IssueCritical      IssueKind = "CRITICAL"
	IssueMisplaced     IssueKind = "MISPLACED"
)

// Issue is one finding with a human-readable detail.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Detail string    `json:"detail"`
}

func (i Issue) String() string {
	return string(i.Kind) + ": " + i.Detail
}

// Heuristic limits. Normal recitation runs at two to four words per second.
const (
	lowScore         = 0.8
	criticalScore    = 0.5
	shortWords       = 10
	shortSeconds     = 5.0
	longWords        = 5
	longSeconds      = 20.0
	slowWordsPerSec  = 1.0
	fastWordsPerSec  = 6.0
	largeGapSeconds  = 3.0
	overlapTolerance = -0.5
	worstListed      = 20
)

// AyahAnalysis is the investigation of one aligned ayah.
type AyahAnalysis struct {
	AyahNumber     int      `json:"ayah_number"`
	Similarity     float64  `json:"similarity"`
	Start          float64  `json:"start"`
	End            float64  `json:"end"`
	Duration       float64  `json:"duration"`
	WordCount      int      `json:"word_count"`
	WordsPerSecond float64  `json:"words_per_second"`
	GapBefore      float64  `json:"gap_before"`
	GapAfter       float64  `json:"gap_after"`
	PrevSimilarity *float64 `json:"prev_similarity,omitempty"`
	NextSimilarity *float64 `json:"next_similarity,omitempty"`
	Issues         []Issue  `json:"issues,omitempty"`
}

// HasIssue reports whether the analysis carries an issue of kind k.
func (a AyahAnalysis) HasIssue(k IssueKind) bool {
	return slices.ContainsFunc(a.Issues, func(i Issue) bool { return i.Kind == k })
}

// Span is an inclusive range of ayah numbers.
type Span struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// Patterns groups ayah numbers by failure pattern.
type Patterns struct {
	CascadeSequences []Span `json:"cascade_sequences"`
	IsolatedFailures []int  `json:"isolated_failures"`
	GapIssues        []int  `json:"gap_issues"`
	DurationMismatch []int  `json:"duration_mismatch"`
	CriticalFailures []int  `json:"critical_failures"`
	Misplaced        []int  `json:"misplaced"`
}

// Investigation is the deep analysis of one surah.
type Investigation struct {
	SurahID    int            `json:"surah_id"`
	SurahName  string         `json:"surah_name"`
	Total      int            `json:"total"`
	LowScoring int            `json:"low_scoring"`
	Ayahs      []AyahAnalysis `json:"ayahs"`
	Patterns   Patterns       `json:"patterns"`
	Worst      []AyahAnalysis `json:"worst"`
}

// Locator finds the ayah of a surah whose text best matches a transcript.
type Locator interface {
	Locate(ctx context.Context, surah int, text string) (ayah int, found bool, err error)
}

// Investigate analyzes every ayah of out. When loc is not nil, low-scoring
// ayahs whose transcript best matches a different ayah are flagged MISPLACED.
func Investigate(ctx context.Context, out *SurahOutput, loc Locator) (*Investigation, error) {
	inv := &Investigation{
		SurahID:   out.SurahID,
		SurahName: out.SurahName,
		Total:     len(out.Ayahs),
		Ayahs:     make([]AyahAnalysis, 0, len(out.Ayahs)),
	}

	for i := range out.Ayahs {
		var prev, next *AyahOutput
		if i > 0 {
			prev = &out.Ayahs[i-1]
		}
		if i+1 < len(out.Ayahs) {
			next = &out.Ayahs[i+1]
		}
		a := analyzeAyah(out.Ayahs[i], prev, next)

		if loc != nil && a.Similarity < lowScore && out.Ayahs[i].Transcript != "" {
			match, found, err := loc.Locate(ctx, out.SurahID, out.Ayahs[i].Transcript)
			if err != nil {
				return nil, fmt.Errorf("locate ayah %d: %w", a.AyahNumber, err)
			}
			if found && match != a.AyahNumber {
				a.Issues = append(a.Issues, Issue{IssueMisplaced, fmt.Sprintf("transcript matches ayah %d", match)})
			}
		}

		if a.Similarity < lowScore {
			inv.LowScoring++
		}
		inv.Ayahs = append(inv.Ayahs, a)
	}

	inv.Patterns = identifyPatterns(inv.Ayahs)

	for _, a := range inv.Ayahs {
		if a.Similarity < lowScore {
			inv.Worst = append(inv.Worst, a)
		}
	}
	slices.SortStableFunc(inv.Worst, func(x, y AyahAnalysis) int {
		switch {
		case x.Similarity < y.Similarity:
			return -1
		case x.Similarity > y.Similarity:
			return 1
		}
		return 0
	})
	inv.Worst = inv.Worst[:min(worstListed, len(inv.Worst))]

	return inv, nil
}

func analyzeAyah(ayah AyahOutput, prev, next *AyahOutput) AyahAnalysis {
	a := AyahAnalysis{
		AyahNumber: ayah.AyahNumber,
		Similarity: ayah.Similarity,
		Start:      ayah.Start,
		End:        ayah.End,
		Duration:   ayah.End - ayah.Start,
		WordCount:  normalize.WordCount(ayah.Text),
	}
	if a.Duration > 0 {
		a.WordsPerSecond = float64(a.WordCount) / a.Duration
	}
	if prev != nil {
		a.GapBefore = ayah.Start - prev.End
		a.PrevSimilarity = &prev.Similarity
	}
	if next != nil {
		a.GapAfter = next.Start - ayah.End
		a.NextSimilarity = &next.Similarity
	}

	add := func(k IssueKind, format string, args ...any) {
		a.Issues = append(a.Issues, Issue{Kind: k, Detail: fmt.Sprintf(format, args...)})
	}

	if a.WordCount > shortWords && a.Duration < shortSeconds {
		add(IssueShortDuration, "%d words in %.1fs", a.WordCount, a.Duration)
	}
	if a.WordCount < longWords && a.Duration > longSeconds {
		add(IssueLongDuration, "%d words in %.1fs", a.WordCount, a.Duration)
	}
	if a.WordsPerSecond < slowWordsPerSec {
		add(IssueSlowPace, "%.2f words/sec", a.WordsPerSecond)
	} else if a.WordsPerSecond > fastWordsPerSec {
		add(IssueFastPace, "%.2f words/sec", a.WordsPerSecond)
	}
	if a.GapBefore > largeGapSeconds {
		add(IssueGapBefore, "%.1fs gap", a.GapBefore)
	}
	if a.GapBefore < overlapTolerance {
		add(IssueOverlapBefore, "%.1fs overlap", -a.GapBefore)
	}
	if prev != nil && prev.Similarity < lowScore && a.Similarity < lowScore {
		add(IssueCascade, "previous ayah also low")
	}
	if a.Similarity < criticalScore {
		add(IssueCritical, "likely misaligned")
	}
	return a
}

func identifyPatterns(analyses []AyahAnalysis) Patterns {
	var p Patterns

	for i := 0; i < len(analyses); {
		if analyses[i].Similarity >= lowScore {
			i++
			continue
		}
		j := i
		for j < len(analyses) && analyses[j].Similarity < lowScore {
			j++
		}
		if j-i >= 2 {
			p.CascadeSequences = append(p.CascadeSequences, Span{
				First: analyses[i].AyahNumber,
				Last:  analyses[j-1].AyahNumber,
			})
		} else {
			p.IsolatedFailures = append(p.IsolatedFailures, analyses[i].AyahNumber)
		}
		i = j
	}

	for _, a := range analyses {
		if a.Similarity < criticalScore {
			p.CriticalFailures = append(p.CriticalFailures, a.AyahNumber)
		}
		if a.GapBefore > largeGapSeconds && a.Similarity < lowScore {
			p.GapIssues = append(p.GapIssues, a.AyahNumber)
		}
		if a.HasIssue(IssueShortDuration) || a.HasIssue(IssueLongDuration) {
			p.DurationMismatch = append(p.DurationMismatch, a.AyahNumber)
		}
		if a.HasIssue(IssueMisplaced) {
			p.Misplaced = append(p.Misplaced, a.AyahNumber)
		}
	}
	return p
}
