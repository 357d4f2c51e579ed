package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/aretw0/fable/pkg/session"
)

var (
	// ErrStoryFailed reports that the story stopped at an error seam.
	ErrStoryFailed = errors.New("story failed")
	// ErrTurnLimit reports that MaxTurns was reached before the end.
	ErrTurnLimit = errors.New("turn limit reached")
)

// Runner drives the advance loop of one session.
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdio.
	Handler IOHandler

	// Sessions persists the session after every turn. When nil the
	// session lives only for the duration of Run.
	Sessions *session.Manager

	// Logger is used for internal debug logging.
	Logger *slog.Logger

	SessionID string
	MaxTurns  int
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run plays engine until the story finishes, the player input ends, the
// player types exit or quit, or ctx is cancelled. It returns the last
// session seen.
func (r *Runner) Run(ctx context.Context, engine ports.Advancer) (*domain.Session, error) {
	handler := r.resolveHandler()

	id := r.SessionID
	if id == "" {
		id = engine.NewSession("").ID
	}
	var local *domain.Session
	if r.Sessions == nil {
		local = engine.NewSession(id)
	}

	input := ""
	for turn := 0; ; turn++ {
		if err := ctx.Err(); err != nil {
			return local, err
		}
		if r.MaxTurns > 0 && turn >= r.MaxTurns {
			return local, ErrTurnLimit
		}

		res, err := r.advance(ctx, engine, id, local, input, turn == 0)
		if err != nil {
			return local, err
		}
		local = res.Session
		input = ""

		r.Logger.DebugContext(ctx, "turn played", "session_id", id, "seam", res.Seam, "address", res.Address, "ops", len(res.Ops))
		if err := handler.Output(ctx, res); err != nil {
			return local, fmt.Errorf("output error: %w", err)
		}

		switch res.Seam {
		case domain.SeamFinish:
			return local, nil
		case domain.SeamError:
			return local, fmt.Errorf("%w: %s", ErrStoryFailed, res.Info.Reason)
		case domain.SeamInput:
			reply, err := handler.Input(ctx, pendingInput(res.Ops))
			if err != nil {
				if errors.Is(err, io.EOF) {
					return local, nil
				}
				if ctx.Err() != nil {
					return local, ctx.Err()
				}
				return local, fmt.Errorf("input error: %w", err)
			}
			if isQuit(reply) {
				return local, nil
			}
			input = reply
		}
	}
}

// advance plays one turn. The first turn of a Run against a stored session
// that already played counts as a resume.
func (r *Runner) advance(ctx context.Context, engine ports.Advancer, id string, local *domain.Session, input string, first bool) (*domain.Result, error) {
	if r.Sessions != nil {
		var opts []session.AdvanceOption
		if first {
			opts = append(opts, session.Resuming())
		}
		return r.Sessions.Advance(ctx, engine, id, input, opts...)
	}
	return engine.Advance(ctx, local, input), nil
}

func (r *Runner) resolveHandler() IOHandler {
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r.Handler
}

func pendingInput(ops []domain.Op) domain.Op {
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].Type == domain.OpRequestInput {
			return ops[i]
		}
	}
	return domain.Op{Type: domain.OpRequestInput}
}

func isQuit(reply string) bool {
	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "exit", "quit":
		return true
	}
	return false
}
