package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Logger is a thin wrapper around slog. It always writes to stderr; stdout is
// reserved for the stdio MCP transport.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given level ("debug", "info",
// "warn", "error").
func NewLogger(level string) *Logger {
	return newLogger(os.Stderr, level)
}

func newLogger(w io.Writer, level string) *Logger {
	return &Logger{
		Logger: slog.New(tint.NewHandler(w, &tint.Options{
			Level:      parseLevel(level),
			TimeFormat: time.TimeOnly,
		})),
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
