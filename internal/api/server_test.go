package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ectows/ectows/pkg/server"
)

func setupTestServer(t *testing.T, stats *server.Stats, opts Options) *Server {
	t.Helper()
	return NewServer(func() *server.Stats { return stats }, opts, slog.Default())
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv := setupTestServer(t, nil, Options{})
	w := get(t, srv, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status: got %q, want %q", body["status"], "ok")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestReadyz(t *testing.T) {
	srv := setupTestServer(t, nil, Options{})
	if w := get(t, srv, "/readyz"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("before first tick: got %d, want 503", w.Code)
	}

	srv = setupTestServer(t, &server.Stats{}, Options{})
	if w := get(t, srv, "/readyz"); w.Code != http.StatusOK {
		t.Errorf("after first tick: got %d, want 200", w.Code)
	}
}

func TestStatus(t *testing.T) {
	stats := &server.Stats{Connections: 3, Web: 1, Admin: 1, Unauthenticated: 1, Accepted: 7, LogLines: 42}
	srv := setupTestServer(t, stats, Options{TickRate: 60})
	w := get(t, srv, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.TickRate != 60 {
		t.Errorf("TickRate: got %d, want 60", resp.TickRate)
	}
	if resp.Server == nil || *resp.Server != *stats {
		t.Errorf("Server: got %+v, want %+v", resp.Server, stats)
	}
}

func TestMetrics(t *testing.T) {
	srv := setupTestServer(t, nil, Options{})
	w := get(t, srv, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ectows_ticks_total") {
		t.Error("metrics output missing ectows_ticks_total")
	}
}

func TestRateLimit(t *testing.T) {
	srv := setupTestServer(t, nil, Options{RequestsPerSecond: 1, Burst: 2})
	for i := range 2 {
		if w := get(t, srv, "/healthz"); w.Code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i, w.Code)
		}
	}
	w := get(t, srv, "/healthz")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("third request: got %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Error("missing Retry-After header")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := newRateLimiter(1, 1)
	rl.allow("a")
	rl.limiters["a"].lastSeen = time.Now().Add(-time.Hour)
	rl.allow("b")
	rl.cleanup(time.Minute)
	if _, ok := rl.limiters["a"]; ok {
		t.Error("stale entry not removed")
	}
	if _, ok := rl.limiters["b"]; !ok {
		t.Error("fresh entry removed")
	}
}
