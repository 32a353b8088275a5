// Package logging builds the process logger: a text or JSON slog
// handler behind a secret-redacting wrapper.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures New.
type Options struct {
	Level  string // debug, info, warn, error; default info
	Format string // text or json; default text
	Output io.Writer
	// Secrets are redacted on sight in addition to DefaultPatterns.
	Secrets []string
	// LevelVar, when set, receives the parsed level and controls the
	// handler, so the level can change while the logger is in use.
	LevelVar *slog.LevelVar
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", s)
	}
}

// New returns a logger configured by opts.
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	hopts := &slog.HandlerOptions{Level: level}
	if opts.LevelVar != nil {
		opts.LevelVar.Set(level)
		hopts.Level = opts.LevelVar
	}
	var inner slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		inner = slog.NewTextHandler(out, hopts)
	case "json":
		inner = slog.NewJSONHandler(out, hopts)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", opts.Format)
	}

	return slog.New(NewRedactingHandler(inner, NewRedactor(opts.Secrets...))), nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
