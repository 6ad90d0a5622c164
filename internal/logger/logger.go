// Package logger provides slog helpers for the app.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/handsomefox/movie-ranking/internal/env"
)

// New builds the process logger: readable text locally, JSON with source
// locations in production.
func New(level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stderr, env.Current, level)
}

func NewWithWriter(w io.Writer, e env.Environment, level slog.Level) *slog.Logger {
	if e == env.Production {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: true,
			Level:     level,
		}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps debug/info/warn/error to a level; anything else is info.
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

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("err", "nil")
	}
	return slog.String("err", err.Error())
}
