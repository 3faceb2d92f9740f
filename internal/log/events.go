package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// StructuredLogger writes the fixed-shape records the dashboards key on.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPStart logs an incoming request.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithClientIP(clientIP)
	sl.logger.InfoContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs a finished request at a level derived from its status.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)
	sl.logger.Log(ctx, statusLevel(statusCode), "HTTP request completed", fields.ToSlice()...)
}

func statusLevel(code int) slog.Level {
	switch {
	case code >= 500:
		return slog.LevelError
	case code >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// LogSnapshotRun logs the outcome of a generate-and-persist run. Runs that
// end in error are warnings; the months already committed stay committed.
func (sl *StructuredLogger) LogSnapshotRun(ctx context.Context, runID string, requested, committed, failed int, err error) {
	fields := NewFields().
		WithSnapshotRun(runID, requested, committed, failed).
		WithOperation(OpGenerate).
		WithError(err)

	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
	}
	sl.logger.Log(ctx, level, "Snapshot run finished", fields.ToSlice()...)
}

// LogBridge logs a computed cash-flow bridge.
func (sl *StructuredLogger) LogBridge(ctx context.Context, start, end time.Time, opening, closing string) {
	fields := NewFields().
		WithOperation(OpBridge).
		WithPeriod(start, end)
	fields["opening"] = opening
	fields["closing"] = closing
	sl.logger.InfoContext(ctx, "Bridge computed", fields.ToSlice()...)
}
