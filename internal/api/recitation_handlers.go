package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/munajjam/munajjam/internal/domain"
	domainerrors "github.com/munajjam/munajjam/internal/errors"
)

func (s *Server) registerRecitationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listSurahAyahs",
		Method:      http.MethodGet,
		Path:        "/api/v1/recitations/{recitationID}/surahs/{surah}/ayahs",
		Summary:     "List ayah timestamps",
		Description: "Returns the persisted timestamp of every ayah of one surah",
		Tags:        []string{"Recitations"},
	}, s.handleListSurahAyahs)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSurahRun",
		Method:      http.MethodGet,
		Path:        "/api/v1/recitations/{recitationID}/surahs/{surah}/run",
		Summary:     "Get surah run",
		Description: "Returns the retry controller's last recorded run of one surah",
		Tags:        []string{"Recitations"},
	}, s.handleGetSurahRun)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSurahRuns",
		Method:      http.MethodGet,
		Path:        "/api/v1/recitations/{recitationID}/runs",
		Summary:     "List surah runs",
		Description: "Returns every recorded surah run of a recitation with pass and fail counts",
		Tags:        []string{"Recitations"},
	}, s.handleListSurahRuns)

	huma.Register(s.api, huma.Operation{
		OperationID: "listManualReview",
		Method:      http.MethodGet,
		Path:        "/api/v1/recitations/{recitationID}/review",
		Summary:     "List manual review",
		Description: "Returns the surahs that exhausted their attempts",
		Tags:        []string{"Recitations"},
	}, s.handleListManualReview)
}

// === DTOs ===

// SurahPathInput identifies one surah of a recitation.
type SurahPathInput struct {
	RecitationID string `path:"recitationID" maxLength:"100" doc:"Recitation ID"`
	Surah        int    `path:"surah" minimum:"1" maximum:"114" doc:"Surah number"`
}

// RecitationPathInput identifies a recitation.
type RecitationPathInput struct {
	RecitationID string `path:"recitationID" maxLength:"100" doc:"Recitation ID"`
}

// AyahListResponse lists persisted ayah rows.
type AyahListResponse struct {
	RecitationID string              `json:"recitation_id" doc:"Recitation ID"`
	Surah        int                 `json:"surah" doc:"Surah number"`
	Ayahs        []domain.AyahRecord `json:"ayahs" doc:"Ayah rows in ayah order"`
}

// AyahListOutput wraps the ayah list for Huma.
type AyahListOutput struct {
	Body AyahListResponse
}

// SurahRunOutput wraps one surah run for Huma.
type SurahRunOutput struct {
	Body *domain.SurahRun
}

// SurahRunsResponse lists runs with ayah status totals.
type SurahRunsResponse struct {
	RecitationID string             `json:"recitation_id" doc:"Recitation ID"`
	Runs         []*domain.SurahRun `json:"runs" doc:"Runs ordered by surah"`
	Passed       int                `json:"passed" doc:"Persisted ayahs with status pass"`
	Failed       int                `json:"failed" doc:"Persisted ayahs with status fail"`
}

// SurahRunsOutput wraps the run list for Huma.
type SurahRunsOutput struct {
	Body SurahRunsResponse
}

// ReviewResponse lists surahs awaiting manual review.
type ReviewResponse struct {
	RecitationID string              `json:"recitation_id" doc:"Recitation ID"`
	Items        []domain.ReviewItem `json:"items" doc:"Review items ordered by surah"`
}

// ReviewOutput wraps the review list for Huma.
type ReviewOutput struct {
	Body ReviewResponse
}

func (s *Server) handleListSurahAyahs(ctx context.Context, input *SurahPathInput) (*AyahListOutput, error) {
	if err := s.requireStore(); err != nil {
		return nil, toHTTPError(err)
	}
	ayahs, err := s.store.ListAyahs(ctx, input.RecitationID, input.Surah)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if len(ayahs) == 0 {
		return nil, toHTTPError(domainerrors.NotFoundf("no timestamps for surah %d of %s", input.Surah, input.RecitationID))
	}
	return &AyahListOutput{
		Body: AyahListResponse{
			RecitationID: input.RecitationID,
			Surah:        input.Surah,
			Ayahs:        ayahs,
		},
	}, nil
}

func (s *Server) handleGetSurahRun(ctx context.Context, input *SurahPathInput) (*SurahRunOutput, error) {
	if err := s.requireStore(); err != nil {
		return nil, toHTTPError(err)
	}
	run, err := s.store.GetSurahRun(ctx, input.RecitationID, input.Surah)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &SurahRunOutput{Body: run}, nil
}

func (s *Server) handleListSurahRuns(ctx context.Context, input *RecitationPathInput) (*SurahRunsOutput, error) {
	if err := s.requireStore(); err != nil {
		return nil, toHTTPError(err)
	}
	runs, err := s.store.ListSurahRuns(ctx, input.RecitationID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	counts, err := s.store.CountAyahs(ctx, input.RecitationID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if runs == nil {
		runs = []*domain.SurahRun{}
	}
	return &SurahRunsOutput{
		Body: SurahRunsResponse{
			RecitationID: input.RecitationID,
			Runs:         runs,
			Passed:       counts[domain.StatusPass],
			Failed:       counts[domain.StatusFail],
		},
	}, nil
}

func (s *Server) handleListManualReview(ctx context.Context, input *RecitationPathInput) (*ReviewOutput, error) {
	if err := s.requireStore(); err != nil {
		return nil, toHTTPError(err)
	}
	items, err := s.store.ListManualReview(ctx, input.RecitationID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if items == nil {
		items = []domain.ReviewItem{}
	}
	return &ReviewOutput{
		Body: ReviewResponse{
			RecitationID: input.RecitationID,
			Items:        items,
		},
	}, nil
}

func (s *Server) requireStore() error {
	if s.store == nil {
		return huma.Error503ServiceUnavailable("database not configured")
	}
	return nil
}
