package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/munajjam/munajjam/internal/align"
	"github.com/munajjam/munajjam/internal/domain"
	domainerrors "github.com/munajjam/munajjam/internal/errors"
	"github.com/munajjam/munajjam/internal/transcribe"
	"github.com/munajjam/munajjam/internal/validation"
)

func (s *Server) registerAlignRoutes() {
	op := huma.Operation{
		OperationID: "alignSurah",
		Method:      http.MethodPost,
		Path:        "/api/v1/align",
		Summary:     "Align segments to ayahs",
		Description: "Aligns posted transcription segments to the ayahs of one surah. Ayahs are taken from the request or, when omitted, from the loaded reference text. Nothing is persisted.",
		Tags:        []string{"Alignment"},
	}
	if s.limiter != nil {
		op.Middlewares = huma.Middlewares{s.rateLimit}
	}
	huma.Register(s.api, op, s.handleAlign)
}

// === DTOs ===

// AlignRequest is the body of an alignment call.
type AlignRequest struct {
	Surah         int              `json:"surah,omitempty" minimum:"0" maximum:"114" doc:"Surah number; required when ayahs are omitted"`
	Strategy      string           `json:"strategy,omitempty" enum:"greedy,dp,hybrid" doc:"Overrides the server's alignment strategy"`
	Segments      []domain.Segment `json:"segments" minItems:"1" doc:"Transcribed segments in time order"`
	Ayahs         []domain.Ayah    `json:"ayahs,omitempty" doc:"Canonical ayahs; defaults to the reference text of surah"`
	Silences      []domain.Silence `json:"silences,omitempty" doc:"Detected silences in seconds"`
	FilterSpecial bool             `json:"filter_special,omitempty" doc:"Drop isti'adha and stray basmala segments first"`
}

// AlignInput wraps the request body for Huma.
type AlignInput struct {
	Body AlignRequest
}

// AlignResponse carries the per-ayah results.
type AlignResponse struct {
	Surah             int                      `json:"surah" doc:"Surah number"`
	Strategy          domain.Strategy          `json:"strategy" doc:"Strategy that produced the results"`
	Expected          int                      `json:"expected" doc:"Number of ayahs in the surah"`
	Aligned           int                      `json:"aligned" doc:"Number of ayahs given a timestamp"`
	AverageSimilarity float64                  `json:"average_similarity" doc:"Mean similarity across results"`
	Results           []domain.AlignmentResult `json:"results" doc:"One result per aligned ayah, in ayah order"`
	Stats             domain.AlignmentStats    `json:"stats" doc:"Where each result came from"`
}

// AlignOutput wraps the alignment response for Huma.
type AlignOutput struct {
	Body AlignResponse
}

func (s *Server) handleAlign(ctx context.Context, input *AlignInput) (*AlignOutput, error) {
	req := input.Body

	ayahs := req.Ayahs
	if len(ayahs) == 0 {
		if req.Surah == 0 {
			return nil, toHTTPError(domainerrors.Validation("either ayahs or surah is required"))
		}
		if s.reference == nil {
			return nil, toHTTPError(domainerrors.Validation("no reference text is loaded; post the ayahs"))
		}
		var err error
		if ayahs, err = s.reference.Surah(req.Surah); err != nil {
			return nil, toHTTPError(err)
		}
	}
	surah := req.Surah
	if surah == 0 {
		surah = ayahs[0].SurahID
	}

	segments := req.Segments
	if req.FilterSpecial {
		var dropped int
		segments, dropped = transcribe.FilterSpecial(segments, surah)
		s.logger.Debug("filtered special segments", "surah", surah, "dropped", dropped)
	}

	aligner, err := s.alignerFor(req.Strategy)
	if err != nil {
		return nil, toHTTPError(err)
	}

	in := align.Input{Segments: segments, Ayahs: ayahs, Silences: req.Silences}
	if err := validation.Validate(in); err != nil {
		return nil, toHTTPError(err)
	}

	out, err := aligner.Align(ctx, in)
	if err != nil {
		return nil, toHTTPError(err)
	}

	s.logger.Info("alignment served",
		"surah", surah,
		"strategy", aligner.Options().Strategy,
		"aligned", len(out.Results),
		"expected", len(ayahs),
	)

	return &AlignOutput{
		Body: AlignResponse{
			Surah:             surah,
			Strategy:          aligner.Options().Strategy,
			Expected:          len(ayahs),
			Aligned:           len(out.Results),
			AverageSimilarity: domain.AverageSimilarity(out.Results),
			Results:           out.Results,
			Stats:             out.Stats,
		},
	}, nil
}

// alignerFor returns the server's aligner, or a copy running another strategy.
func (s *Server) alignerFor(strategy string) (*align.Aligner, error) {
	if strategy == "" || domain.Strategy(strategy) == s.aligner.Options().Strategy {
		return s.aligner, nil
	}
	parsed, err := domain.ParseStrategy(strategy)
	if err != nil {
		return nil, toHTTPError(domainerrors.Validation(err.Error()))
	}
	opts := s.aligner.Options()
	opts.Strategy = parsed
	return align.New(opts)
}
