// Package api serves the read-only status endpoints next to the WebSocket
// listener.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ectows/ectows/pkg/server"
)

// StatsFunc returns the latest server snapshot, or nil before the first tick.
type StatsFunc func() *server.Stats

// Options configures the status server.
type Options struct {
	// TickRate is reported in /status.
	TickRate int
	// RequestsPerSecond and Burst limit each client IP (default 10 and 20).
	RequestsPerSecond float64
	Burst             int
}

// Server is the HTTP status server.
type Server struct {
	stats     StatsFunc
	opts      Options
	logger    *slog.Logger
	mux       *chi.Mux
	rl        *rateLimiter
	startTime time.Time
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Uptime   string        `json:"uptime"`
	TickRate int           `json:"tick_rate"`
	Server   *server.Stats `json:"server,omitempty"`
}

// NewServer creates a status server reading snapshots from stats.
func NewServer(stats StatsFunc, opts Options, logger *slog.Logger) *Server {
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 10
	}
	if opts.Burst == 0 {
		opts.Burst = 20
	}
	srv := &Server{
		stats:     stats,
		opts:      opts,
		logger:    logger.With("component", "api"),
		rl:        newRateLimiter(opts.RequestsPerSecond, opts.Burst),
		startTime: time.Now(),
	}

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(chimw.RealIP)
	mux.Use(securityHeadersMiddleware)
	mux.Use(ipRateLimitMiddleware(srv.rl))

	mux.Get("/healthz", srv.handleHealthz)
	mux.Get("/readyz", srv.handleReadyz)
	mux.Get("/status", srv.handleStatus)
	mux.Method(http.MethodGet, "/metrics", promhttp.Handler())

	srv.mux = mux
	return srv
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) uptime() string {
	return time.Since(s.startTime).Truncate(time.Second).String()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": s.uptime(),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.stats() == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Uptime:   s.uptime(),
		TickRate: s.opts.TickRate,
		Server:   s.stats(),
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
