// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Setup installs the default slog logger. format is "text", "json" or
// "auto"; auto writes text to a terminal and json everywhere else.
func Setup(level, format string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	switch resolveFormat(format, w) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithComponent returns the default logger tagged with a component name
func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsTerminal reports whether w is a file attached to a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func resolveFormat(format string, w io.Writer) string {
	if format != "auto" {
		return format
	}
	if IsTerminal(w) {
		return "text"
	}
	return "json"
}
