package runner

import (
	"log/slog"

	"github.com/aretw0/fable/pkg/session"
)

// Option configures the Runner.
type Option func(*Runner)

// WithSessions persists every turn through m.
func WithSessions(m *session.Manager) Option {
	return func(r *Runner) {
		r.Sessions = m
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithSessionID names the session to play. Empty means a fresh random ID.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithMaxTurns stops the loop after n advance calls. Zero means no limit.
func WithMaxTurns(n int) Option {
	return func(r *Runner) {
		r.MaxTurns = n
	}
}
