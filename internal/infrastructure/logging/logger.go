// Package logging provides structured logging utilities.
//
// Text logs are formatted with optional colors:
// [LEVEL] [component] [HH:MM:SS] message key=value
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ItsMattG/property-tracker-sub002/internal/infrastructure/config"
)

// ComponentKey is the attribute rendered in brackets by the console handler
const ComponentKey = "component"

// NewLogger creates a structured logger based on config, writing to stdout
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	return NewLoggerTo(os.Stdout, cfg)
}

// NewLoggerTo creates a structured logger writing to w
func NewLoggerTo(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(NewConsoleHandler(w, opts))
}

// NewLoggerWithComponent creates a logger with a component prefix (e.g., "sweep", "cli")
func NewLoggerWithComponent(cfg config.LoggingConfig, component string) *slog.Logger {
	return NewLogger(cfg).With(ComponentKey, component)
}

// ParseLevel maps a config level name to a slog level; unknown names are info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
