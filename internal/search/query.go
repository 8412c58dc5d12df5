package search

import (
	"context"
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	bsearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/munajjam/munajjam/internal/normalize"
)

const defaultLimit = 10

// Query asks for the ayahs that best match Text. Text may carry diacritics
// and hamza variants; it is normalized the same way the index is.
type Query struct {
	Text   string
	Surah  int // 0 searches every surah
	Limit  int // defaults to 10
	Offset int
}

// Results are ordered by score, then by position in the mushaf.
type Results struct {
	Normalized string
	Total      uint64
	Took       time.Duration
	Hits       []Hit
}

type Hit struct {
	ID    string
	Surah int
	Ayah  int
	Text  string // as in the reference, diacritics kept
	Score float64
}

var hitFields = []string{"surah", "ayah", "display"}

func (s *SearchIndex) Search(ctx context.Context, q Query) (*Results, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	normalized := normalize.Arabic(q.Text)

	req := bleve.NewSearchRequestOptions(compile(normalized, q.Surah), q.Limit, q.Offset, false)
	req.SortBy([]string{"-_score", "surah", "ayah"})
	req.Fields = hitFields

	s.mu.RLock()
	res, err := s.index.SearchInContext(ctx, req)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", normalized, err)
	}

	out := &Results{
		Normalized: normalized,
		Total:      res.Total,
		Took:       res.Took,
		Hits:       make([]Hit, len(res.Hits)),
	}
	for i, dm := range res.Hits {
		out.Hits[i] = toHit(dm)
	}
	return out, nil
}

// toHit reads the stored fields back. Bleve returns numbers as float64.
func toHit(dm *bsearch.DocumentMatch) Hit {
	h := Hit{ID: dm.ID, Score: dm.Score}
	h.Surah = intField(dm, "surah")
	h.Ayah = intField(dm, "ayah")
	h.Text, _ = dm.Fields["display"].(string)
	return h
}

func intField(dm *bsearch.DocumentMatch, name string) int {
	v, _ := dm.Fields[name].(float64)
	return int(v)
}

// Locate returns the ayah of surah whose text best matches text.
func (s *SearchIndex) Locate(ctx context.Context, surah int, text string) (int, bool, error) {
	res, err := s.Search(ctx, Query{Text: text, Surah: surah, Limit: 1})
	if err != nil || len(res.Hits) == 0 {
		return 0, false, err
	}
	return res.Hits[0].Ayah, true, nil
}

// compile scores a normalized phrase highest when its words appear in order,
// then by whole-text and per-word matches. A surah filter is ANDed on.
func compile(normalized string, surah int) query.Query {
	if normalized == "" {
		return bleve.NewMatchNoneQuery()
	}

	whole := bleve.NewMatchQuery(normalized)
	whole.SetField("text")
	whole.SetBoost(2)

	words := bleve.NewMatchQuery(normalized)
	words.SetField("words")

	phrase := bleve.NewMatchPhraseQuery(normalized)
	phrase.SetField("words")
	phrase.SetBoost(3)

	text := bleve.NewDisjunctionQuery(whole, words, phrase)
	if surah <= 0 {
		return text
	}

	n, incl := float64(surah), true
	within := bleve.NewNumericRangeInclusiveQuery(&n, &n, &incl, &incl)
	within.SetField("surah")
	return bleve.NewConjunctionQuery(text, within)
}
