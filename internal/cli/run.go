package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/fable"
	"github.com/aretw0/fable/internal/presentation/tui"
	"github.com/aretw0/fable/pkg/runner"
)

// RunOptions configures the play command.
type RunOptions struct {
	Source    string
	SessionID string
	JSON      bool
	Watch     bool
	Fresh     bool
	Pace      bool
	MaxTurns  int

	In  io.Reader
	Out io.Writer
}

// Play runs a story in the terminal until it finishes or the player quits.
func Play(ctx context.Context, st *Stack, opts RunOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	interactive := !opts.JSON && opts.Out == os.Stdout && tui.IsTerminal(os.Stdout)

	engine, err := st.Engine(opts.Source)
	if err != nil {
		return err
	}
	if interactive {
		tui.PrintBanner(opts.Out, fable.Version)
	}

	if opts.Fresh && opts.SessionID != "" {
		if err := st.Sessions.Delete(ctx, opts.SessionID); err != nil {
			st.Logger.WarnContext(ctx, "could not reset session", "session_id", opts.SessionID, "err", err)
		}
	}

	if opts.Watch {
		err := WatchReload(ctx, engine, st.Logger, func() {
			if !opts.JSON {
				printSystemMessage(opts.Out, "Story '%s' reloaded.", engine.Name)
			}
		})
		if err != nil {
			return fmt.Errorf("watch unavailable: %w", err)
		}
	}

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		hopts := []runner.TextHandlerOption{runner.WithPace(opts.Pace)}
		if interactive {
			hopts = append(hopts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
		}
		handler = runner.NewTextHandler(opts.In, opts.Out, hopts...)
	}

	r := runner.NewRunner(
		runner.WithInputHandler(handler),
		runner.WithSessions(st.Sessions),
		runner.WithSessionID(opts.SessionID),
		runner.WithLogger(st.Logger),
		runner.WithMaxTurns(opts.MaxTurns),
	)

	final, err := r.Run(ctx, engine)
	attrs := []any{"story", engine.Name}
	if final != nil {
		attrs = append(attrs, "session_id", final.ID, "address", final.Address, "turn", final.Turn)
	}
	if err != nil {
		attrs = append(attrs, "err", err)
	}
	st.Logger.InfoContext(ctx, "session ended", attrs...)
	return exitError(err)
}
