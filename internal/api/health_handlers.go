package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/munajjam/munajjam/internal/quran"
)

// HealthStatus is ordered from best to worst so the overall status is the max.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

func (h HealthStatus) rank() int {
	switch h {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// ComponentHealth is one probe's result.
type ComponentHealth struct {
	Status  HealthStatus `json:"status" enum:"healthy,degraded,unhealthy" doc:"Component status"`
	Latency string       `json:"latency,omitempty" doc:"Time the probe took"`
	Message string       `json:"message,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     HealthStatus               `json:"status" enum:"healthy,degraded,unhealthy" doc:"Worst component status"`
	Strategy   string                     `json:"strategy" doc:"Alignment strategy used by POST /api/v1/align"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

// probe checks one component. Returning an error marks it unhealthy; a
// non-empty degraded reason marks it degraded.
type probe func(ctx context.Context) (message, degraded string, err error)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Probes the timestamp store, the ayah search index and the reference text.",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

func (s *Server) probes() map[string]probe {
	probes := map[string]probe{
		"database":  nil,
		"search":    nil,
		"reference": nil,
	}
	if s.store != nil {
		probes["database"] = func(ctx context.Context) (string, string, error) {
			return "", "", s.store.Ping(ctx)
		}
	}
	if s.search != nil {
		probes["search"] = func(context.Context) (string, string, error) {
			n, err := s.search.DocumentCount()
			if err != nil {
				return "", "", err
			}
			if n == 0 {
				return "", "no ayahs indexed", nil
			}
			return fmt.Sprintf("%d ayahs indexed", n), "", nil
		}
	}
	if s.reference != nil {
		probes["reference"] = s.probeReference
	}
	if s.events != nil {
		probes["events"] = func(context.Context) (string, string, error) {
			return fmt.Sprintf("%d subscribers", s.events.Subscribers()), "", nil
		}
	}
	return probes
}

// probeReference counts surahs whose ayah list is short of the canonical
// count. A partial reference is still usable for the surahs it has.
func (s *Server) probeReference(context.Context) (string, string, error) {
	surahs := s.reference.Surahs()
	if len(surahs) == 0 {
		return "", "reference text is empty", nil
	}
	var short []int
	for _, n := range surahs {
		if !s.reference.Complete(n) {
			short = append(short, n)
		}
	}
	msg := fmt.Sprintf("%d of %d surahs loaded", len(surahs), quran.SurahCount)
	if len(short) > 0 {
		return msg, fmt.Sprintf("surahs %v are missing ayahs", short), nil
	}
	return msg, "", nil
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	resp := HealthResponse{
		Status:     StatusHealthy,
		Strategy:   string(s.aligner.Options().Strategy),
		Components: make(map[string]ComponentHealth),
	}

	for name, p := range s.probes() {
		c := runProbe(ctx, name, p)
		if c.Status.rank() > resp.Status.rank() {
			resp.Status = c.Status
		}
		resp.Components[name] = c
	}
	return &HealthOutput{Body: resp}, nil
}

func runProbe(ctx context.Context, name string, p probe) ComponentHealth {
	if p == nil {
		return ComponentHealth{Status: StatusDegraded, Message: name + " not configured"}
	}

	start := time.Now()
	msg, degraded, err := p(ctx)
	c := ComponentHealth{Status: StatusHealthy, Latency: time.Since(start).String(), Message: msg}
	switch {
	case err != nil:
		c.Status = StatusUnhealthy
		c.Message = err.Error()
	case degraded != "":
		c.Status = StatusDegraded
		c.Message = degraded
	}
	return c
}
