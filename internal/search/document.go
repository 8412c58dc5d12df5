// Package search indexes reference ayah text with Bleve so a transcript can be
// traced back to the ayah it most resembles. The investigation report uses it
// to spot ayahs aligned to the wrong span, and the API exposes it directly.
package search

import (
	"fmt"

	"github.com/munajjam/munajjam/internal/domain"
	"github.com/munajjam/munajjam/internal/normalize"
)

// AyahDocument is the indexed form of one ayah.
//
// Text is indexed twice: through the Arabic analyzer (normalization, stop
// words, light stemming) and through the simple analyzer on the already
// normalized words, so that exact word sequences can be boosted.
type AyahDocument struct {
	ID      string `json:"id"`
	Surah   int    `json:"surah"`
	Ayah    int    `json:"ayah"`
	Display string `json:"display"` // Original text, returned in hits
	Words   string `json:"words"`   // Normalized text
}

// DocumentID returns the index key of an ayah.
func DocumentID(surah, ayah int) string {
	return fmt.Sprintf("ayah:%03d:%03d", surah, ayah)
}

// NewAyahDocument builds the document for a reference ayah.
func NewAyahDocument(a domain.Ayah) *AyahDocument {
	return &AyahDocument{
		ID:      DocumentID(a.SurahID, a.Number),
		Surah:   a.SurahID,
		Ayah:    a.Number,
		Display: a.Text,
		Words:   normalize.Arabic(a.Text),
	}
}

// ToMap converts the document to the field layout of the mapping.
func (d *AyahDocument) ToMap() map[string]any {
	return map[string]any{
		"id":      d.ID,
		"surah":   float64(d.Surah),
		"ayah":    float64(d.Ayah),
		"display": d.Display,
		"text":    d.Words,
		"words":   d.Words,
	}
}
