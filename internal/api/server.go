// Package api implements the Steward HTTP API: chat turns, session
// management, document rendering, and operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stewardhq/steward/internal/agent"
	"github.com/stewardhq/steward/internal/buildinfo"
	"github.com/stewardhq/steward/internal/config"
	"github.com/stewardhq/steward/internal/health"
	"github.com/stewardhq/steward/internal/memory"
	"github.com/stewardhq/steward/internal/prefs"
	"github.com/stewardhq/steward/internal/records"
)

// writeJSON encodes v to the response writer, logging encode failures.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address string
	port    int
	engine  *agent.Engine
	memory  *memory.Store
	records *records.Store
	prefs   *prefs.Store
	monitor *health.Monitor
	logger  *slog.Logger
	server  *http.Server
}

// NewServer creates an API server.
func NewServer(cfg config.ListenConfig, engine *agent.Engine, mem *memory.Store, rec *records.Store, pref *prefs.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address: cfg.Address,
		port:    cfg.Port,
		engine:  engine,
		memory:  mem,
		records: rec,
		prefs:   pref,
		logger:  logger,
	}
}

// SetMonitor attaches a provider health monitor. Without one, /health
// reports process liveness only.
func (s *Server) SetMonitor(m *health.Monitor) {
	s.monitor = m
}

// Handler builds the route table. Exposed so tests can drive the mux
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Chat endpoints
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /v1/chat/stream", s.handleChatStream)
	mux.HandleFunc("DELETE /v1/history", s.handleClearHistory)

	// Session endpoints
	mux.HandleFunc("GET /v1/sessions", s.handleSessionList)
	mux.HandleFunc("POST /v1/sessions", s.handleSessionCreate)
	mux.HandleFunc("PATCH /v1/sessions/{id}", s.handleSessionRename)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleSessionDelete)
	mux.HandleFunc("GET /v1/sessions/{id}/messages", s.handleSessionMessages)

	// Preference endpoints
	mux.HandleFunc("GET /v1/prefs", s.handlePrefsGet)
	mux.HandleFunc("PATCH /v1/prefs", s.handlePrefsSet)

	// Document rendering
	mux.HandleFunc("GET /v1/documents/{id}/html", s.handleDocumentHTML)

	// Health endpoints
	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	mux.Handle("GET /metrics", promhttp.Handler())

	return s.withLogging(mux)
}

// Start runs the server until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Long for streaming turns
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    "Steward",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.monitor == nil {
		writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
		return
	}

	status := "healthy"
	if !s.monitor.Ready() {
		status = "degraded"
	}
	writeJSON(w, map[string]any{
		"status":    status,
		"providers": s.monitor.Snapshot(),
	}, s.logger)
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}
