package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/aretw0/fable/pkg/runner"
)

// ExitInterrupted is the conventional status for a run stopped by SIGINT.
const ExitInterrupted = 130

// SignalContext is cancelled by the first SIGINT or SIGTERM and remembers
// which one arrived.
type SignalContext struct {
	context.Context
	Cancel context.CancelFunc
	caught atomic.Value
}

// NewSignalContext starts listening for termination signals until parent
// is done or Cancel is called.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, Cancel: cancel}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(signals)
		select {
		case sig := <-signals:
			sc.caught.Store(sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return sc
}

// Signal reports the signal that cancelled the context, if any.
func (sc *SignalContext) Signal() os.Signal {
	sig, _ := sc.caught.Load().(os.Signal)
	return sig
}

// ExitCode maps the run outcome to a process status.
func (sc *SignalContext) ExitCode(err error) int {
	switch {
	case sc.Signal() == os.Interrupt:
		return ExitInterrupted
	case err != nil:
		return 1
	default:
		return 0
	}
}

func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> "+format+"\n", args...)
}

// exitError folds the outcome of a run into the error the command reports.
// Interrupts and player quits are not failures.
func exitError(err error) error {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, runner.ErrStoryFailed), errors.Is(err, runner.ErrTurnLimit):
		return err
	default:
		return fmt.Errorf("run failed: %w", err)
	}
}
