// Package logging provides the structured logger used across the gateway:
// a thin layer over log/slog with level and format parsing driven by
// configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format is the log output format.
type Format string

const (
	// FormatJSON outputs one JSON object per line.
	FormatJSON Format = "json"

	// FormatText outputs logfmt-style text.
	FormatText Format = "text"
)

// Options configures a Logger.
type Options struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string

	// Format is json or text.
	Format string

	// Writer receives log output (nil = stderr).
	Writer io.Writer

	// AddSource includes file:line in records.
	AddSource bool
}

// New builds a *slog.Logger from Options.
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: opts.AddSource,
	}

	var handler slog.Handler
	switch Format(strings.ToLower(opts.Format)) {
	case FormatText:
		handler = slog.NewTextHandler(w, handlerOpts)
	case FormatJSON, "":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	return slog.New(handler), nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}
