// Package normalize canonicalizes Arabic text so that transcribed speech and
// reference ayah text can be compared.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ'

// letterFolds unifies letter variants. Applied before marks are stripped.
//
//nolint:gochecknoglobals // Static lookup table
var letterFolds = map[rune]rune{
	'أ': 'ا',
	'إ': 'ا',
	'آ': 'ا',
	'ٱ': 'ا', // alef wasla
	'ى': 'ي',
	'ة': 'ه',
}

// marks covers harakat, shadda, sukun, superscript alef, and the Quranic
// annotation signs, all of which are combining marks.
//
//nolint:gochecknoglobals // Static rune set
var marks = runes.In(unicode.M)

// Arabic normalizes text for comparison. The rules, in order:
//  1. alef forms (أ إ آ ٱ) become ا
//  2. ى becomes ي
//  3. ة becomes ه
//  4. diacritics and tatweel are removed
//  5. punctuation (anything but letters, digits, underscore and space) is removed
//  6. whitespace runs collapse to one space
//  7. leading and trailing space is trimmed
//
// Arabic is total and idempotent. Invalid UTF-8 is dropped.
func Arabic(text string) string {
	if text == "" {
		return ""
	}
	s := norm.NFC.String(text)
	s = strings.Map(fold, s)
	// Dropping marks can leave letters adjacent that compose under NFC
	// (Hangul jamo); recompose so a second pass is a no-op.
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

func fold(r rune) rune {
	if f, ok := letterFolds[r]; ok {
		return f
	}
	switch {
	case r == tatweel, marks.Contains(r):
		return -1
	case unicode.IsSpace(r):
		return ' '
	case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
		return r
	default:
		return -1
	}
}

// Words returns the normalized words of text.
func Words(text string) []string {
	return strings.Fields(Arabic(text))
}

// WordCount returns the number of normalized words in text.
func WordCount(text string) int {
	return len(Words(text))
}

// FirstWords returns the first n normalized words of text joined by spaces.
func FirstWords(text string, n int) string {
	words := Words(text)
	if n < len(words) {
		words = words[:max(n, 0)]
	}
	return strings.Join(words, " ")
}

// LastWords returns the last n normalized words of text joined by spaces.
func LastWords(text string, n int) string {
	words := Words(text)
	if n < len(words) {
		words = words[len(words)-max(n, 0):]
	}
	return strings.Join(words, " ")
}
