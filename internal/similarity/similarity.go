// Package similarity scores how closely a transcript matches reference text.
package similarity

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/munajjam/munajjam/internal/normalize"
)

// Ratio normalizes a and b and returns the sequence-matcher ratio 2M/T over
// their runes, where M is the number of matched runes and T the total rune
// count. Two empty strings score 1, an empty against a non-empty string 0.
func Ratio(a, b string) float64 {
	return RatioNormalized(normalize.Arabic(a), normalize.Arabic(b))
}

// RatioNormalized is Ratio for inputs that are already normalized.
func RatioNormalized(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	// Autojunk off: past 200 runes it would stop common letters from
	// matching, and strings sharing a subsequence could score 0.
	m := difflib.NewMatcherWithJunk(splitRunes(a), splitRunes(b), false, nil)
	return m.Ratio()
}

// FirstWords compares the first n normalized words of a and b.
func FirstWords(a, b string, n int) float64 {
	return RatioNormalized(normalize.FirstWords(a, n), normalize.FirstWords(b, n))
}

// LastWords compares the last n normalized words of a and b.
func LastWords(a, b string, n int) float64 {
	return RatioNormalized(normalize.LastWords(a, n), normalize.LastWords(b, n))
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Join concatenates texts with single spaces, skipping empty ones.
func Join(texts ...string) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
