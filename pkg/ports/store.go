package ports

import (
	"context"

	"github.com/aretw0/fable/pkg/domain"
)

// SessionStore defines the interface for persisting player sessions.
// This allows for durable playthroughs, enabling "Stop & Resume" workflows.
type SessionStore interface {
	// Save persists the session for a given session ID.
	Save(ctx context.Context, sessionID string, session *domain.Session) error

	// Load retrieves the session for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the session for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns all active session IDs.
	List(ctx context.Context) ([]string, error)
}
