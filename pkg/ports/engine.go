package ports

import (
	"context"

	"github.com/aretw0/fable/pkg/domain"
)

// Advancer is the engine surface used by adapters (HTTP, MCP, runner)
// that keep sessions outside the engine.
type Advancer interface {
	// NewSession creates a fresh session for id.
	NewSession(id string) *domain.Session

	// Advance runs the story until the next seam. An empty input means
	// no player input accompanies this call.
	Advance(ctx context.Context, session *domain.Session, input string) *domain.Result

	// Revert restores session to a retained checkpoint.
	Revert(session *domain.Session, index int) error

	// Cartridge returns the loaded story for introspection.
	Cartridge() *domain.Cartridge
}

// TunableAdvancer is an Advancer that accepts options per call.
type TunableAdvancer interface {
	Advancer

	// Options returns the defaults Advance uses.
	Options() domain.Options

	// AdvanceWith runs one advance call with explicit options. A nil input
	// means no player input accompanies this call.
	AdvanceWith(ctx context.Context, session *domain.Session, opts domain.Options, input *string) *domain.Result
}
