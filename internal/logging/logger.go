// Package logging builds the application loggers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Options tune New.
type Options struct {
	// JSON switches the terminal handler from text to JSON.
	JSON bool
	// File, when set, receives JSON records in addition to stderr.
	File string
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == "error" {
		a.Key = "err"
	}
	return a
}

// New creates a configured application logger.
// It writes to Stderr so stdout stays free for story output and JSON-RPC.
// With a log file configured, records fan out to both. The returned
// closer releases the file.
func New(level slog.Level, opts Options) (*slog.Logger, io.Closer, error) {
	hopts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceAttr}

	var terminal slog.Handler
	if opts.JSON {
		terminal = slog.NewJSONHandler(os.Stderr, hopts)
	} else {
		terminal = slog.NewTextHandler(os.Stderr, hopts)
	}

	if opts.File == "" {
		return slog.New(terminal), io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	file := slog.NewJSONHandler(f, hopts)
	return slog.New(slogmulti.Fanout(terminal, file)), f, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
