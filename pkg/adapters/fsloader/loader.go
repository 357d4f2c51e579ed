// Package fsloader loads a single cartridge file (JSON, YAML or markup)
// and watches it for changes.
package fsloader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aretw0/fable/pkg/cartridge"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of writes from editors.
const DefaultDebounce = 100 * time.Millisecond

// Loader implements ports.CartridgeLoader and ports.Watchable for one file.
type Loader struct {
	Path     string
	Debounce time.Duration
}

// New creates a loader for path.
func New(path string) *Loader {
	return &Loader{Path: path, Debounce: DefaultDebounce}
}

// Load decodes the file.
func (l *Loader) Load(ctx context.Context) (*domain.Cartridge, error) {
	return cartridge.LoadFile(l.Path)
}

// Watch signals when the file is written, created or replaced. The parent
// directory is watched so atomic saves (write temp + rename) are seen.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	abs, err := filepath.Abs(l.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", abs, err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer w.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != abs {
					continue
				}
				if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(l.Debounce)
				} else {
					timer.Reset(l.Debounce)
				}
				fire = timer.C
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-fire:
				fire = nil
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}
