package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinel-analytics/dqsi-engine/internal/infrastructure/cache"
	"github.com/sentinel-analytics/dqsi-engine/internal/infrastructure/config"
	dqsisvc "github.com/sentinel-analytics/dqsi-engine/internal/service/dqsi"
)

// Server wraps the HTTP server and its routes.
type Server struct {
	server *http.Server
	cache  *cache.AssessmentCache
	logger *slog.Logger
}

// NewServer wires the handler, middleware chain and health endpoints.
func NewServer(cfg *config.Config, service *dqsisvc.Service, assessments *cache.AssessmentCache, logger *slog.Logger) *Server {
	handler := NewHandler(service, assessments, logger)
	s := &Server{cache: assessments, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/assessments/alert", handler.AssessAlert)
	mux.HandleFunc("POST /api/v1/assessments/case", handler.AssessCase)
	mux.HandleFunc("POST /api/v1/assessments/coverage", handler.ValidateCoverage)
	mux.HandleFunc("POST /api/v1/assessments/simulate", handler.SimulateImpact)
	mux.HandleFunc("POST /api/v1/assessments/recommendations", handler.RecommendImprovements)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	chained := chain(mux,
		requestIDMiddleware,
		loggingMiddleware,
		recoveryMiddleware,
		rateLimitMiddleware(cfg.Server.RateLimit),
		authMiddleware(cfg.Auth),
	)

	s.server = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      chained,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// chain applies middleware outermost-first.
func chain(h http.Handler, middleware ...Middleware) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// Start blocks serving HTTP until the listener fails or is closed.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady reports ready when the optional cache responds to ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.cache.Ping(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"cache":  err.Error(),
			})
			return
		}
	}
	writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeStatus(w http.ResponseWriter, status int, payload map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
