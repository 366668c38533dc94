// Package logging builds the daemon's structured logger: text or JSON on
// stdout, mirrored to the systemd journal when it is available.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Identifier is the SYSLOG_IDENTIFIER used for journal entries.
const Identifier = "boiler-vision"

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Anything else is info.
func ParseLevel(level string) slog.Level {
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

// New returns a logger writing to stdout, and to the journal when the
// process runs under systemd.
// format: "json" or "text" (default "text").
func New(level, format string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, format, IsJournalAvailable())
}

// NewWithWriter is New with an explicit stdout and journal choice.
func NewWithWriter(w io.Writer, level, format string, journal bool) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	if journal {
		h = NewMultiHandler(h, NewJournalHandler(lvl))
	}
	return slog.New(h)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
