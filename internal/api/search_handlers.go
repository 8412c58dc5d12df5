package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/munajjam/munajjam/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchAyahs",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search ayahs",
		Description: "Finds ayahs by their normalized text. Useful for placing a transcript fragment that did not align.",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

type SearchInput struct {
	Query  string `query:"q" required:"true" minLength:"1" maxLength:"500" doc:"Arabic text, with or without diacritics"`
	Surah  int    `query:"surah" minimum:"0" maximum:"114" doc:"Restrict to one surah; 0 searches all"`
	Limit  int    `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 10)"`
	Offset int    `query:"offset" minimum:"0"`
}

type AyahHit struct {
	Surah int     `json:"surah"`
	Ayah  int     `json:"ayah"`
	Text  string  `json:"text" doc:"Reference text with diacritics"`
	Score float64 `json:"score"`
}

type SearchResponse struct {
	Query      string    `json:"query"`
	Normalized string    `json:"normalized" doc:"The query as matched against the index"`
	Total      uint64    `json:"total"`
	TookMs     int64     `json:"took_ms"`
	Hits       []AyahHit `json:"hits"`
}

type SearchOutput struct {
	Body SearchResponse
}

func (s *Server) handleSearch(ctx context.Context, in *SearchInput) (*SearchOutput, error) {
	if s.search == nil {
		return nil, huma.Error503ServiceUnavailable("search index not configured")
	}

	res, err := s.search.Search(ctx, search.Query{
		Text:   in.Query,
		Surah:  in.Surah,
		Limit:  in.Limit,
		Offset: in.Offset,
	})
	if err != nil {
		s.logger.Error("ayah search failed", "error", err, "q", in.Query, "surah", in.Surah)
		return nil, toHTTPError(err)
	}
	s.logger.Debug("ayah search", "q", res.Normalized, "surah", in.Surah, "total", res.Total, "took", res.Took)

	body := SearchResponse{
		Query:      in.Query,
		Normalized: res.Normalized,
		Total:      res.Total,
		TookMs:     res.Took.Milliseconds(),
		Hits:       make([]AyahHit, len(res.Hits)),
	}
	for i, h := range res.Hits {
		body.Hits[i] = AyahHit{Surah: h.Surah, Ayah: h.Ayah, Text: h.Text, Score: h.Score}
	}
	return &SearchOutput{Body: body}, nil
}
