// Package log scopes slog loggers to components and carries them through
// request contexts.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger that keeps the *Logger type through With so it
// can be stored in and recovered from a context.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration. Handler, when set, wins over Output
// and Level.
type Config struct {
	Level     slog.Level
	Component string
	Output    io.Writer
	Handler   slog.Handler
}

// ParseLevel maps LOG_LEVEL values to slog levels. Unknown values are Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a text logger on stdout unless cfg says otherwise.
func New(cfg Config) *Logger {
	handler := cfg.Handler
	if handler == nil {
		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.Level})
	}
	l := &Logger{Logger: slog.New(handler)}
	if cfg.Component != "" {
		return l.WithComponent(cfg.Component)
	}
	return l
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithComponent tags every record with component. Scope a logger once;
// tagging twice emits the key twice.
func (l *Logger) WithComponent(component string) *Logger {
	return l.With(FieldComponent, component)
}

// SetDefault routes the package-level slog functions through l.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
