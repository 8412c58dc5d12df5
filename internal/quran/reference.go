package quran

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/munajjam/munajjam/internal/domain"
	domainerrors "github.com/munajjam/munajjam/internal/errors"
)

//go:embed data/fatiha.csv
var fatihaCSV []byte

// Reference is canonical ayah text grouped by surah.
type Reference struct {
	surahs map[int][]domain.Ayah
}

// Fatiha returns a reference holding only Al-Fatiha.
func Fatiha() *Reference {
	ref, err := LoadCSV(bytes.NewReader(fatihaCSV))
	if err != nil {
		panic(fmt.Sprintf("embedded reference: %v", err))
	}
	return ref
}

// LoadFile reads a reference CSV from path.
func LoadFile(path string) (*Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference: %w", err)
	}
	defer f.Close()

	ref, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ref, nil
}

// LoadCSV reads rows with the header columns sura_id, index and text (an id
// column may be present and is ignored). Column order does not matter.
func LoadCSV(r io.Reader) (*Reference, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimPrefix(strings.TrimSpace(h), "\uFEFF")] = i
	}
	surahCol, ok1 := cols["sura_id"]
	indexCol, ok2 := cols["index"]
	textCol, ok3 := cols["text"]
	if !ok1 || !ok2 || !ok3 {
		return nil, errors.New("reference header must contain sura_id, index and text")
	}

	ref := &Reference{surahs: make(map[int][]domain.Ayah)}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) <= max(surahCol, indexCol, textCol) {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", line, len(header), len(rec))
		}
		surah, err := strconv.Atoi(strings.TrimSpace(rec[surahCol]))
		if err != nil || !ValidSurah(surah) {
			return nil, fmt.Errorf("line %d: invalid sura_id %q", line, rec[surahCol])
		}
		number, err := strconv.Atoi(strings.TrimSpace(rec[indexCol]))
		if err != nil || number < 1 {
			return nil, fmt.Errorf("line %d: invalid index %q", line, rec[indexCol])
		}
		ref.surahs[surah] = append(ref.surahs[surah], domain.Ayah{
			SurahID: surah,
			Number:  number,
			Text:    strings.TrimSpace(rec[textCol]),
		})
	}

	for _, ayahs := range ref.surahs {
		slices.SortFunc(ayahs, func(a, b domain.Ayah) int { return a.Number - b.Number })
	}
	return ref, nil
}

// Surah returns the ayahs of surah n in order.
func (r *Reference) Surah(n int) ([]domain.Ayah, error) {
	ayahs, ok := r.surahs[n]
	if !ok {
		return nil, domainerrors.NotFoundf("surah %d is not in the reference", n)
	}
	return slices.Clone(ayahs), nil
}

// Has reports whether surah n is loaded.
func (r *Reference) Has(n int) bool {
	_, ok := r.surahs[n]
	return ok
}

// Complete reports whether surah n is loaded with its canonical ayah count.
func (r *Reference) Complete(n int) bool {
	return len(r.surahs[n]) == AyahCount(n)
}

// Surahs returns the loaded surah numbers in ascending order.
func (r *Reference) Surahs() []int {
	out := make([]int, 0, len(r.surahs))
	for n := range r.surahs {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// All yields every loaded ayah, surah by surah.
func (r *Reference) All() iter.Seq[domain.Ayah] {
	return func(yield func(domain.Ayah) bool) {
		for _, n := range r.Surahs() {
			for _, a := range r.surahs[n] {
				if !yield(a) {
					return
				}
			}
		}
	}
}

// Ayah returns one ayah.
func (r *Reference) Ayah(surah, number int) (domain.Ayah, error) {
	for _, a := range r.surahs[surah] {
		if a.Number == number {
			return a, nil
		}
	}
	return domain.Ayah{}, domainerrors.NotFoundf("ayah %d:%d is not in the reference", surah, number)
}
