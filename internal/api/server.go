// Package api exposes alignment, stored timestamps, and ayah search over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/munajjam/munajjam/internal/align"
	"github.com/munajjam/munajjam/internal/logger"
	"github.com/munajjam/munajjam/internal/quran"
	"github.com/munajjam/munajjam/internal/ratelimit"
	"github.com/munajjam/munajjam/internal/search"
	"github.com/munajjam/munajjam/internal/sse"
	"github.com/munajjam/munajjam/internal/store/sqlite"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Config holds the server's dependencies. Store, Search, and Reference may be
// nil; the routes that need them then report the component as unavailable.
type Config struct {
	Store     *sqlite.Store
	Search    *search.SearchIndex
	Reference *quran.Reference
	Aligner   *align.Aligner

	// Events, when set, serves live surah progress at GET /api/v1/events.
	Events *sse.Manager

	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string

	// AlignRate and AlignBurst bound POST /api/v1/align per client IP.
	// A zero rate disables the limit.
	AlignRate  float64
	AlignBurst int

	Logger *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store     *sqlite.Store
	search    *search.SearchIndex
	reference *quran.Reference
	aligner   *align.Aligner
	events    *sse.Manager
	limiter   *ratelimit.KeyedRateLimiter

	router *chi.Mux
	api    huma.API
	logger *slog.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(cfg Config) *Server {
	s := &Server{
		store:     cfg.Store,
		search:    cfg.Search,
		reference: cfg.Reference,
		aligner:   cfg.Aligner,
		events:    cfg.Events,
		router:    chi.NewRouter(),
		logger:    logger.OrDiscard(cfg.Logger),
	}
	if s.aligner == nil {
		// Default options always validate.
		s.aligner, _ = align.New(align.DefaultOptions())
	}
	if cfg.AlignRate > 0 {
		s.limiter = ratelimit.New(cfg.AlignRate, max(cfg.AlignBurst, 1))
	}

	s.setupMiddleware(cfg.AllowedOrigins)

	RegisterErrorHandler()
	humaConfig := huma.DefaultConfig("Munajjam API", Version)
	humaConfig.Info.Description = "Ayah-level timestamp alignment for Quran recitations"
	s.api = humachi.New(s.router, humaConfig)

	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAlignRoutes()
	s.registerRecitationRoutes()
	s.registerSearchRoutes()

	if s.events != nil {
		s.router.Get("/api/v1/events", sse.NewHandler(s.events, s.logger).ServeHTTP)
	}
}

// requestLogger logs one line per request through slog.
func requestLogger(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			l.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
