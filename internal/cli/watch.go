package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/fable"
)

// settle lets editors finish writing before the story is re-read.
const settle = 100 * time.Millisecond

// WatchReload reloads engine whenever its source changes, until ctx is
// done. onReload runs after every successful reload. An invalid edit is
// logged and the previous story stays active.
func WatchReload(ctx context.Context, engine *fable.Engine, logger *slog.Logger, onReload func()) error {
	changes, err := engine.Watch(ctx)
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(settle):
				}
				if err := engine.Reload(ctx); err != nil {
					logger.ErrorContext(ctx, "reload failed, keeping previous story", "err", err)
					continue
				}
				logger.InfoContext(ctx, "story reloaded", "story", engine.Name)
				if onReload != nil {
					onReload()
				}
			}
		}
	}()
	return nil
}
