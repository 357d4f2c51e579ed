package ports

import (
	"context"

	"github.com/aretw0/fable/pkg/domain"
)

// CartridgeLoader defines how the engine retrieves the compiled story.
// This allows the storage layer (Loam, FS, Memory) to be decoupled.
type CartridgeLoader interface {
	Load(ctx context.Context) (*domain.Cartridge, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying story changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
