// Package api exposes the control-plane HTTP interface: exit-node selection
// for the fetch gateway plus health, stats and metrics endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moviegraph/crawler/internal/fetch"
	"github.com/moviegraph/crawler/internal/metrics"
	"github.com/moviegraph/crawler/internal/pipeline"
)

// Server wires HTTP handlers to the node registry and the pipeline driver.
type Server struct {
	router   chi.Router
	registry *fetch.NodeRegistry
	driver   *pipeline.Driver
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes. The driver may
// be nil when only node control is needed.
func NewServer(registry *fetch.NodeRegistry, driver *pipeline.Driver, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{registry: registry, driver: driver, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Get("/stats", s.getStats)
	r.Get("/nodes", s.listNodes)
	r.Get("/current", s.getCurrent)
	r.Put("/current", s.setCurrent)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) getStats(w http.ResponseWriter, _ *http.Request) {
	if s.driver == nil {
		writeError(w, http.StatusNotFound, "no pipeline attached", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, s.driver.Stats(), s.logger)
}

type nodeView struct {
	ID      string `json:"id"`
	Current bool   `json:"current"`
}

func (s *Server) listNodes(w http.ResponseWriter, _ *http.Request) {
	current, _ := s.registry.Current()
	nodes := s.registry.List()
	views := make([]nodeView, 0, len(nodes))
	for _, n := range nodes {
		views = append(views, nodeView{ID: n.ID, Current: n.ID == current.ID})
	}
	writeJSON(w, http.StatusOK, views, s.logger)
}

func (s *Server) getCurrent(w http.ResponseWriter, _ *http.Request) {
	node, ok := s.registry.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "no current node", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, nodeView{ID: node.ID, Current: true}, s.logger)
}

type setCurrentRequest struct {
	ID string `json:"id"`
}

func (s *Server) setCurrent(w http.ResponseWriter, r *http.Request) {
	var req setCurrentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "missing node id", s.logger)
		return
	}
	if err := s.registry.SetCurrent(req.ID); err != nil {
		writeError(w, http.StatusNotFound, err.Error(), s.logger)
		return
	}
	s.logger.Info("exit node switched", zap.String("node", req.ID))
	writeJSON(w, http.StatusOK, nodeView{ID: req.ID, Current: true}, s.logger)
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
				writeError(w, http.StatusInternalServerError, "internal server error", s.logger)
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

func writeJSON(w http.ResponseWriter, status int, payload any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *zap.Logger) {
	writeJSON(w, status, map[string]string{"error": msg}, logger)
}
