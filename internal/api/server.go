package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Mouseminar/job-mcp/internal/config"
	"github.com/Mouseminar/job-mcp/internal/crawler"
	"github.com/Mouseminar/job-mcp/internal/logging"
	"github.com/Mouseminar/job-mcp/internal/metrics"
)

// Searcher runs aggregated searches. *aggregator.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, query crawler.Query) (crawler.Report, error)
	Sources() []crawler.SourceInfo
}

// Archiver stores completed reports. *archive.Recorder implements it.
type Archiver interface {
	Record(ctx context.Context, report crawler.Report) error
}

const archiveTimeout = 10 * time.Second

// Server wires HTTP handlers to the search engine.
type Server struct {
	router   chi.Router
	searcher Searcher
	interns  Searcher
	archiver Archiver
	cfg      config.Config
	logger   *zap.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithInternSearcher serves internship searches under /v1/intern.
func WithInternSearcher(searcher Searcher) Option {
	return func(s *Server) { s.interns = searcher }
}

// NewServer constructs a Server with middleware and routes. archiver may be nil.
func NewServer(searcher Searcher, archiver Archiver, cfg config.Config, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		searcher: searcher,
		archiver: archiver,
		cfg:      cfg,
		logger:   logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	budget := cfg.RequestBudget()
	if budget <= 0 {
		budget = 90 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(budget))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey, s.logger))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/sources", s.listSources(s.searcher))
		r.Get("/search", s.searchGet(s.searcher))
		r.Post("/search", s.searchPost(s.searcher))
		if s.interns != nil {
			r.Get("/intern/sources", s.listSources(s.interns))
			r.Get("/intern", s.searchGet(s.interns))
			r.Post("/intern", s.searchPost(s.interns))
		}
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if len(s.searcher.Sources()) == 0 {
		writeError(w, s.logger, http.StatusServiceUnavailable, crawler.ErrNoAdapters.Error())
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ready"})
}
