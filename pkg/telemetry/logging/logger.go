// Package logging configures the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// LogFormat is the log output format.
type LogFormat string

const (
	// FormatJSON outputs one JSON object per line.
	FormatJSON LogFormat = "json"
	// FormatText outputs logfmt-style text.
	FormatText LogFormat = "text"
)

// Setup installs the default slog logger writing to w (os.Stderr when nil)
// at the given level and format. Components derive their loggers from the
// default via slog.Default().With("component", ...).
func Setup(level, format string, w io.Writer) error {
	if w == nil {
		w = os.Stderr
	}
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info", "":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch LogFormat(format) {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case FormatText, "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
