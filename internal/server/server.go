// Package server exposes the HTTP status API and Prometheus metrics.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/colehagen/esportsbot/internal/server/handler"
	"github.com/colehagen/esportsbot/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Decisions *handler.DecisionHandler
	Matches   *handler.MatchHandler
	Risk      *handler.RiskHandler
}

// Server is the headless HTTP API for operators and dashboards.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered.
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/decisions", handlers.Decisions.ListRecent)
	mux.HandleFunc("GET /api/decisions/{id}", handlers.Decisions.GetByID)

	mux.HandleFunc("GET /api/matches", handlers.Matches.ListLive)
	mux.HandleFunc("GET /api/matches/archive", handlers.Matches.ListArchive)
	mux.HandleFunc("GET /api/matches/{id}", handlers.Matches.GetByID)

	mux.HandleFunc("GET /api/risk", handlers.Risk.Status)
	mux.HandleFunc("POST /api/risk/halt", handlers.Risk.Halt)
	mux.HandleFunc("POST /api/risk/resume", handlers.Risk.Resume)

	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "server")),
	}
}

// Start listens for HTTP requests. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
