// Package server exposes the quiz service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/quizethic/quizethic-ai/internal/billing"
	"github.com/quizethic/quizethic-ai/internal/platform/metrics"
	"github.com/quizethic/quizethic-ai/internal/quiz"
	"github.com/quizethic/quizethic-ai/internal/usage"
)

const readyTimeout = 2 * time.Second

// Check is a readiness probe, e.g. a database ping.
type Check func(ctx context.Context) error

// Config holds the server's dependencies.
type Config struct {
	Quizzes *quiz.Service
	Usage   *usage.Gate
	Auth    *Authenticator

	// Limiter is applied to /api/ routes when set.
	Limiter *RateLimiter

	// Webhooks and Billing enable POST /api/webhooks/billing when both are set.
	Webhooks *billing.Verifier
	Billing  *billing.Processor

	// AllowedOrigin is returned in Access-Control-Allow-Origin. Empty disables CORS.
	AllowedOrigin string

	// GenerateTimeout bounds one quiz generation request. Zero means no limit.
	GenerateTimeout time.Duration

	Checks map[string]Check
}

// Server routes HTTP requests to the quiz service.
type Server struct {
	cfg Config
	mux *http.ServeMux
}

// New creates a Server and registers its routes.
func New(cfg Config) *Server {
	s := &Server{cfg: cfg, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler {
	if s.cfg.AllowedOrigin == "" {
		return s.mux
	}
	return cors(s.cfg.AllowedOrigin, s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", metrics.Handler())

	s.api("POST /api/quizzes", "/api/quizzes", s.handleCreateQuiz)
	s.api("GET /api/quizzes", "/api/quizzes", s.handleListQuizzes)
	s.api("GET /api/quizzes/{id}", "/api/quizzes/{id}", s.handleGetQuiz)
	s.api("GET /api/quizzes/{id}/export", "/api/quizzes/{id}/export", s.handleExportQuiz)
	s.api("POST /api/quizzes/{id}/attempts", "/api/quizzes/{id}/attempts", s.handleRecordAttempt)
	s.api("GET /api/usage", "/api/usage", s.handleUsage)

	if s.cfg.Webhooks != nil && s.cfg.Billing != nil {
		s.mux.Handle("POST /api/webhooks/billing",
			metrics.InstrumentHandler("/api/webhooks/billing", http.HandlerFunc(s.handleBillingWebhook)))
	}
}

// api registers an authenticated, rate limited route.
func (s *Server) api(pattern, route string, h http.HandlerFunc) {
	var next http.Handler = h
	if s.cfg.Limiter != nil {
		next = s.cfg.Limiter.Middleware(next)
	}
	next = s.cfg.Auth.Middleware(next)
	s.mux.Handle(pattern, metrics.InstrumentHandler(route, next))
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(s.cfg.Checks))
	for name := range s.cfg.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := make(map[string]string)
	for _, name := range names {
		if err := s.cfg.Checks[name](ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"checks": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func cors(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Expose-Headers", "Content-Disposition, Retry-After")
		if origin != "*" {
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
