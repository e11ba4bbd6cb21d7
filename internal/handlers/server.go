package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pep299/research-blog-pipeline/internal/cache"
	"github.com/pep299/research-blog-pipeline/internal/config"
	"github.com/pep299/research-blog-pipeline/internal/di"
	"github.com/pep299/research-blog-pipeline/internal/logging"
	"github.com/pep299/research-blog-pipeline/internal/service"
	"github.com/pep299/research-blog-pipeline/internal/transport/middleware"
	"github.com/pep299/research-blog-pipeline/internal/transport/response"
)

// CacheAdmin exposes the lookup cache to the API.
type CacheAdmin interface {
	CacheStats(ctx context.Context) (*cache.Stats, error)
	ClearCache(ctx context.Context) error
}

// Server holds the HTTP handlers and their dependencies
type Server struct {
	config    *config.Config
	runner    *service.Runner
	cache     CacheAdmin
	model     string
	logger    *zap.Logger
	startedAt time.Time
}

// NewServer creates the HTTP API on top of a dependency container
func NewServer(c *di.Container) *Server {
	return newServer(c.Config, c.Runner, c, c.Model.Name(), c.Logger.Named("http"))
}

func newServer(cfg *config.Config, runner *service.Runner, cacheAdmin CacheAdmin, model string, logger *zap.Logger) *Server {
	return &Server{
		config:    cfg,
		runner:    runner,
		cache:     cacheAdmin,
		model:     model,
		logger:    logging.OrNop(logger),
		startedAt: time.Now(),
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Not found")
	})

	// API routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.CORS)
	api.Use(middleware.Logging(s.logger))

	// Health check
	api.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	// Pipeline operations
	auth := middleware.Auth(s.config.WebhookAuthToken)
	api.Handle("/pipeline/run", auth(http.HandlerFunc(s.runPipelineHandler))).Methods(http.MethodPost, http.MethodOptions)
	api.Handle("/research", auth(http.HandlerFunc(s.researchHandler))).Methods(http.MethodPost, http.MethodOptions)

	// Archived runs
	api.HandleFunc("/runs", s.listRunsHandler).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.getRunHandler).Methods(http.MethodGet)

	// Cache operations
	api.HandleFunc("/cache/stats", s.cacheStatsHandler).Methods(http.MethodGet)
	api.HandleFunc("/cache/clear", s.cacheClearHandler).Methods(http.MethodDelete)

	// Status and configuration
	api.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)
	api.HandleFunc("/config", s.configHandler).Methods(http.MethodGet)

	return r
}

// healthHandler provides health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response.Health(w, map[string]interface{}{
		"timestamp": time.Now().Unix(),
		"version":   config.Version,
	})
}
