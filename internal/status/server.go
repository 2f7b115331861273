// Package status serves the /, /health and /metrics HTTP endpoints used by the
// hosting platform's liveness checks and by Prometheus.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/whisper/modbot/internal/metrics"
)

// Check reports whether a dependency is healthy.
type Check func(ctx context.Context) error

// Server is the status HTTP server.
type Server struct {
	httpServer *http.Server
	startedAt  time.Time
	checks     map[string]Check
}

// NewServer creates a Server listening on addr.
func NewServer(addr string) *Server {
	s := &Server{
		startedAt: time.Now(),
		checks:    make(map[string]Check),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// AddCheck registers a named dependency check reported by /health.
func (s *Server) AddCheck(name string, check Check) {
	s.checks[name] = check
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", s.handleHealth)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("[status] listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status: http server error: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	deps := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	resp := struct {
		Status string            `json:"status"`
		Uptime string            `json:"uptime"`
		Checks map[string]string `json:"checks,omitempty"`
	}{
		Status: status,
		Uptime: time.Since(s.startedAt).Round(time.Second).String(),
		Checks: deps,
	}

	_ = json.NewEncoder(w).Encode(resp)
}
