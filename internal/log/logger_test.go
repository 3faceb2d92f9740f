package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentSnapshot, Handler: slog.NewTextHandler(&buf, nil)})
	l.InfoContext(context.Background(), "hello", FieldMonth, "2024-01")

	out := buf.String()
	if !strings.Contains(out, "component=snapshot") || !strings.Contains(out, "month=2024-01") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetDefault(New(Config{Component: ComponentWorker, Output: &buf}))

	FromContext(context.Background()).Info("fallback")
	if out := buf.String(); !strings.Contains(out, "component=worker") || !strings.Contains(out, "msg=fallback") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNewContextCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentHTTP, Output: &buf}).With(FieldRequestID, "req_1")
	ctx := NewContext(context.Background(), l)

	if got := FromContext(ctx); got != l {
		t.Fatalf("FromContext returned %p, want %p", got, l)
	}
	FromContext(ctx).With(FieldMonth, "2024-02").InfoContext(ctx, "scoped")
	out := buf.String()
	for _, want := range []string{"component=http", "request_id=req_1", "month=2024-02"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if strings.Count(out, "component=") != 1 {
		t.Errorf("component logged more than once: %q", out)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf})
	l.Info("dropped")
	l.Warn("kept")
	if out := buf.String(); strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLogSnapshotRunLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Component: ComponentApp, Handler: slog.NewTextHandler(&buf, nil)}))

	sl.LogSnapshotRun(context.Background(), "run-1", 3, 3, 0, nil)
	if !strings.Contains(buf.String(), "level=INFO") || !strings.Contains(buf.String(), "months_committed=3") {
		t.Fatalf("unexpected output %q", buf.String())
	}

	buf.Reset()
	sl.LogSnapshotRun(context.Background(), "run-2", 3, 1, 2, errors.New("boom"))
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "error=boom") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := map[int]string{
		200: "level=INFO",
		404: "level=WARN",
		503: "level=ERROR",
	}
	for code, want := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(New(Config{Output: &buf}))
		r := httptest.NewRequest(http.MethodGet, "/api/bridge?month=2024-06", nil)
		sl.LogHTTPEnd(context.Background(), r, code, 12, "192.0.2.1")
		if out := buf.String(); !strings.Contains(out, want) || !strings.Contains(out, `query="month=2024-06"`) {
			t.Errorf("status %d: unexpected output %q", code, out)
		}
	}
}

func TestLogBridge(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Component: ComponentBridge, Output: &buf}))
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	sl.LogBridge(context.Background(), start, end, "300", "100")
	out := buf.String()
	for _, want := range []string{"operation=bridge", "period_start=2024-03-01T00:00:00Z", "period_end=2024-03-15T00:00:00Z", "opening=300", "closing=100"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
