package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "networth/internal/log"
)

func newBufferLogger(buf *bytes.Buffer) *applog.Logger {
	return applog.New(applog.Config{
		Component: applog.ComponentHTTP,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestHandlerAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(newBufferLogger(&buf), func(*http.Request) string { return "192.0.2.1" })

	var seen string
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		applog.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/snapshots", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id %q not generated", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response header %q, want %q", rr.Header().Get(HeaderRequestID), seen)
	}

	out := buf.String()
	for _, want := range []string{"HTTP request started", "HTTP request completed", "status_code=418", `msg="inside handler" component=http request_id=` + seen} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if m.TotalRequests() != 1 {
		t.Fatalf("TotalRequests = %d", m.TotalRequests())
	}
}

func TestHandlerIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(newBufferLogger(&buf), nil)
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		incoming string
		keep     bool
	}{
		{"abc-123_XYZ", true},
		{"has space", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, tt.incoming)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		got := rr.Header().Get(HeaderRequestID)
		if (got == tt.incoming) != tt.keep {
			t.Errorf("incoming %q: got %q, keep=%v", tt.incoming, got, tt.keep)
		}
	}
}
