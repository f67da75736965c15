// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	handlerapi "github.com/newthinker/datacheck/internal/api/handler/api"
	"github.com/newthinker/datacheck/internal/api/job"
	"github.com/newthinker/datacheck/internal/api/middleware"
	"github.com/newthinker/datacheck/internal/api/response"
	"github.com/newthinker/datacheck/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for datacheck
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
	deps       Dependencies
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string
	JobTimeout  time.Duration
}

// CooldownResetter clears gap report cooldowns.
type CooldownResetter interface {
	ClearCooldown(source string)
	ClearAllCooldowns()
}

// Dependencies holds the components the routes are served from.
type Dependencies struct {
	Checker   handlerapi.Checker
	Metrics   *metrics.Registry
	Stats     func() map[string]any
	Jobs      *job.Store
	History   handlerapi.HistoryLister
	Cooldowns CooldownResetter
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Checker == nil {
		return nil, fmt.Errorf("checker is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Jobs == nil {
		deps.Jobs = job.NewStore(100, time.Hour)
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
		deps:   deps,
	}

	s.setupRoutes(cfg)

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config) {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	auth := middleware.APIKeyAuth(cfg.APIKey)
	availability := handlerapi.NewAvailabilityHandler(s.deps.Checker)
	s.mux.Handle("GET /api/v1/availability", auth(http.HandlerFunc(availability.Availability)))
	s.mux.Handle("GET /api/v1/alignment", auth(http.HandlerFunc(availability.Alignment)))
	s.mux.Handle("GET /api/v1/stats", auth(http.HandlerFunc(s.handleStats)))

	jobs := handlerapi.NewJobsHandler(s.deps.Checker, s.deps.Jobs, cfg.JobTimeout, s.logger)
	s.mux.Handle("POST /api/v1/jobs", auth(http.HandlerFunc(jobs.Create)))
	s.mux.Handle("GET /api/v1/jobs", auth(http.HandlerFunc(jobs.List)))
	s.mux.Handle("GET /api/v1/jobs/{id}", auth(http.HandlerFunc(jobs.Get)))

	if s.deps.History != nil {
		hist := handlerapi.NewHistoryHandler(s.deps.History)
		s.mux.Handle("GET /api/v1/history", auth(http.HandlerFunc(hist.List)))
	}

	if s.deps.Cooldowns != nil {
		s.mux.Handle("DELETE /api/v1/cooldowns", auth(http.HandlerFunc(s.handleClearCooldowns)))
		s.mux.Handle("DELETE /api/v1/cooldowns/{source...}", auth(http.HandlerFunc(s.handleClearCooldowns)))
	}

	if s.deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(s.deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{}
	if s.deps.Stats != nil {
		stats = s.deps.Stats()
	}
	response.JSON(w, http.StatusOK, stats)
}

// handleClearCooldowns clears the cooldown of one source, or of all
// sources when none is named.
func (s *Server) handleClearCooldowns(w http.ResponseWriter, r *http.Request) {
	source := r.PathValue("source")
	if source == "" {
		s.deps.Cooldowns.ClearAllCooldowns()
	} else {
		s.deps.Cooldowns.ClearCooldown(source)
	}
	s.logger.Info("gap report cooldown cleared", zap.String("source", source))
	w.WriteHeader(http.StatusNoContent)
}
