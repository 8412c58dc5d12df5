// Package util holds small string helpers with no better home.
package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug turns a transliterated reciter name into a recitation key: accents
// folded, lowercased, a-z and 0-9 only, with single dashes where the name
// had spaces, underscores, slashes or dashes.
//
//	"Mishary Rāshid Alafasy"  → "mishary-rashid-alafasy"
//	"Abdul_Basit/Mujawwad"    → "abdul-basit-mujawwad"
//	"مشاري العفاسي"            → ""
//
// An empty result means the name has no usable Latin letters.
func Slug(name string) string {
	// The chain is stateful, so one is built per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case 'a' <= r && r <= 'z', '0' <= r && r <= '9':
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			sep = false
			b.WriteRune(r)
		case r == '-', r == '_', r == '/', unicode.IsSpace(r):
			sep = true
		}
	}
	return b.String()
}
