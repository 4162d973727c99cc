// Package api exposes the HTTP interface for the indexing engine: health
// and readiness probes, Prometheus metrics, and a read-only status surface
// over the lifecycle manager and the plugin registry.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/engine"
	"github.com/magpie-engine/magpie/internal/metrics"
	"github.com/magpie-engine/magpie/internal/plugin"
)

// Server wires HTTP handlers to the lifecycle manager.
type Server struct {
	router  chi.Router
	manager *engine.Manager
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(manager *engine.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{manager: manager, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.getStatus)
		r.Get("/plugins", s.getPlugins)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.manager.Phase() != engine.PhaseRunning {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"phase":  s.manager.Phase().String(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusResponse struct {
	Phase     string         `json:"phase"`
	StartedAt *time.Time     `json:"started_at,omitempty"`
	Plugins   map[string]int `json:"plugins"`
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	counts := make(map[string]int)
	for point, n := range s.manager.Registry().Counts() {
		counts[string(point)] = n
	}
	resp := statusResponse{
		Phase:   s.manager.Phase().String(),
		Plugins: counts,
	}
	if t := s.manager.StartedAt(); !t.IsZero() {
		resp.StartedAt = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getPlugins(w http.ResponseWriter, _ *http.Request) {
	inv := s.manager.Registry().Inventory()
	out := make(map[string][]string, len(inv))
	for point, ids := range inv {
		out[string(point)] = ids
	}
	// Points with no registrations still appear, so consumers see the full
	// extension surface.
	for _, point := range plugin.Points() {
		if _, ok := out[string(point)]; !ok {
			out[string(point)] = []string{}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
