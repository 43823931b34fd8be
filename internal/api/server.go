package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhongyd/addrnorm/internal/cache"
	"github.com/zhongyd/addrnorm/internal/config"
	"github.com/zhongyd/addrnorm/internal/pipeline"
	"github.com/zhongyd/addrnorm/internal/tagger"
)

// Server is the HTTP API server for addrnorm.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	tags         pipeline.TagSource
	tagger       *tagger.Client    // nil when TAG_SOURCE=llm
	cache        *cache.ResultCache // nil when Redis is not configured
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. tagClient and
// resultCache may be nil.
func NewServer(orch *pipeline.Orchestrator, tags pipeline.TagSource, tagClient *tagger.Client, resultCache *cache.ResultCache, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		tags:         tags,
		tagger:       tagClient,
		cache:        resultCache,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/standardize", s.handleStandardize)
		r.Post("/api/standardize/batch", s.handleStandardizeBatch)
		r.Post("/api/encode", s.handleEncode)
		r.Post("/api/decode", s.handleDecode)
		r.Get("/api/stats/tagger", s.handleTaggerStats)

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Get("/api/ingest/{jobID}/results", s.handleIngestResults)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
