// Package logging builds the structured loggers used across apidl.
//
// Output goes to stderr so stdout stays reserved for the MCP stdio
// transport. Level and format come from the config file and may be
// overridden by APIDL_LOG_LEVEL (debug, info, warn, error) and
// APIDL_LOG_FORMAT (text, json).
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logging configuration
type Config struct {
	Level     slog.Level
	Format    string    // "text" or "json"
	Output    io.Writer // defaults to os.Stderr
	Component string
}

// DefaultConfig returns info-level text logging to stderr
func DefaultConfig(component string) Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    "text",
		Output:    os.Stderr,
		Component: component,
	}
}

// ParseLevel maps a level name to a slog.Level. Unknown names yield info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// FromSettings builds a Config from configured level and format names,
// then applies the environment overrides.
func FromSettings(component, level, format string) Config {
	cfg := DefaultConfig(component)
	if level != "" {
		cfg.Level = ParseLevel(level)
	}
	if format != "" {
		cfg.Format = strings.ToLower(format)
	}
	return applyEnv(cfg)
}

func applyEnv(cfg Config) Config {
	if level := os.Getenv("APIDL_LOG_LEVEL"); level != "" {
		cfg.Level = ParseLevel(level)
	}
	if format := os.Getenv("APIDL_LOG_FORMAT"); format != "" {
		cfg.Format = strings.ToLower(format)
	}
	return cfg
}

// New creates a slog.Logger for cfg
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	if cfg.Component != "" {
		logger = logger.With("component", cfg.Component)
	}
	return logger
}

// Default returns a logger configured from the environment only
func Default(component string) *slog.Logger {
	return New(applyEnv(DefaultConfig(component)))
}

// Nop returns a logger that discards all output
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
