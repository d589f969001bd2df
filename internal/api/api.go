// Package api is the admin HTTP surface of spec.md §9: health, aggregate
// counts, and manual sweep triggers, sitting alongside the chat bot's own
// command surface rather than replacing it.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Sweeper runs one of the periodic background operations on demand.
// The composition root supplies one entry per kind below.
type Sweeper func(ctx context.Context) (int, error)

// BoardStats is the aggregate count payload GET /stats returns.
type BoardStats struct {
	PendingVerifications int  `json:"pending_verifications"`
	ActiveConversations  int  `json:"active_conversations"`
	OpenTickets          int  `json:"open_tickets"`
	PendingIntegrations  int  `json:"pending_integrations"`
	BreakerOpen          bool `json:"breaker_open"`
	QueueDepth           int  `json:"queue_depth"`
}

// StatsProvider supplies the live counts behind GET /stats.
type StatsProvider func(ctx context.Context) (BoardStats, error)

// Server is the admin HTTP surface.
type Server struct {
	router  chi.Router
	log     *slog.Logger
	stats   StatsProvider
	sweeps  map[string]Sweeper
	httpSrv *http.Server
}

// NewServer builds the router; sweeps maps a {kind} path segment
// ("verification-expiry", "conversation-timeout", "integration-retry")
// onto the matching background operation. metricsHandler, when non-nil,
// is mounted at GET /metrics (normally promhttp.HandlerFor the process's
// Prometheus registry).
func NewServer(addr string, log *slog.Logger, stats StatsProvider, sweeps map[string]Sweeper, metricsHandler http.Handler) *Server {
	s := &Server{log: log, stats: stats, sweeps: sweeps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/stats", s.handleStats)
	r.Post("/admin/sweep/{kind}", s.handleSweep)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	s.router = r
	s.httpSrv = &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	return s
}

// ListenAndServe blocks serving the admin API until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.httpSrv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats(r.Context())
	if err != nil {
		s.log.Error("api: stats provider failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "system_error"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	sweep, ok := s.sweeps[kind]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown_sweep_kind"})
		return
	}
	count, err := sweep(r.Context())
	if err != nil {
		s.log.Error("api: manual sweep failed", "kind", kind, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "system_error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "processed": count})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
