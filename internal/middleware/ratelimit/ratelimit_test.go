package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perWindow int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerWindow: perWindow, Window: time.Minute})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllowWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 2)

	for i := 0; i < 2; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("third request in window should be rejected")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other clients are limited independently")
	}
	if rl.Hits() != 1 {
		t.Fatalf("Hits = %d, want 1", rl.Hits())
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("a new window should reset the counter")
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 5)
	rl.Allow("a")
	*now = now.Add(3 * time.Minute)
	rl.Allow("b")

	rl.cleanupStaleEntries()
	if got := rl.ActiveClients(); got != 1 {
		t.Fatalf("ActiveClients = %d, want 1", got)
	}
}

func TestMiddlewareOnlyLimitsMutations(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "ip" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/snapshots", nil))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("GET %d status=%d", i, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/snapshots/generate", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("first POST status=%d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/snapshots/generate", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}
}
