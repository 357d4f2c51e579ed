package runner

import (
	"context"

	"github.com/aretw0/fable/pkg/domain"
)

// IOHandler defines how the runner talks to the player.
// This allows switching between Text (CLI/TUI) and JSON (structured) modes.
type IOHandler interface {
	// Output presents the ops of one advance call.
	Output(ctx context.Context, res *domain.Result) error

	// Input reads the reply to an input request.
	Input(ctx context.Context, req domain.Op) (string, error)

	// SystemOutput presents a meta-message (status, errors) distinct from
	// story content.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms dialogue before it is printed, e.g. markdown
// to ANSI.
type ContentRenderer func(string) (string, error)
