// Package overlap merges consecutive transcript segments whose speech
// repeats across the segment boundary.
package overlap

import (
	"strings"

	"github.com/munajjam/munajjam/internal/normalize"
)

// Merge appends incoming to accumulated, dropping incoming words that already
// occur in accumulated. Occurrences are counted as a multiset of normalized
// words: each incoming word consumes one remaining occurrence, so a word
// spoken twice in accumulated can be discarded at most twice. Kept words
// retain their original spelling.
//
// Merge returns the merged text and how many incoming words were discarded.
func Merge(accumulated, incoming string) (merged string, discarded int) {
	remaining := make(map[string]int)
	for _, w := range normalize.Words(accumulated) {
		remaining[w]++
	}

	fields := strings.Fields(incoming)
	kept := make([]string, 0, len(fields))
	for _, w := range fields {
		key := normalize.Arabic(w)
		if key == "" {
			// punctuation-only token
			continue
		}
		if remaining[key] > 0 {
			remaining[key]--
			discarded++
			continue
		}
		kept = append(kept, w)
	}

	base := strings.TrimSpace(accumulated)
	switch {
	case len(kept) == 0:
		return base, discarded
	case base == "":
		return strings.Join(kept, " "), discarded
	default:
		return base + " " + strings.Join(kept, " "), discarded
	}
}
