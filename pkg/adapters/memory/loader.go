package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/fable/pkg/cartridge"
	"github.com/aretw0/fable/pkg/domain"
)

// Loader implements ports.CartridgeLoader over a cartridge held in memory.
// Set replaces the story and signals watchers, which makes it handy for
// tests of hot reload.
type Loader struct {
	mu       sync.RWMutex
	cart     *domain.Cartridge
	watchers []chan struct{}
}

// NewLoader creates a loader serving c.
func NewLoader(c *domain.Cartridge) *Loader {
	if c != nil {
		cartridge.Prepare(c)
	}
	return &Loader{cart: c}
}

// NewFromMarkup decodes story markup into a loader.
func NewFromMarkup(src string) (*Loader, error) {
	c, err := cartridge.Decode([]byte(src), cartridge.FormatMarkup)
	if err != nil {
		return nil, err
	}
	return &Loader{cart: c}, nil
}

// Load returns the held cartridge.
func (l *Loader) Load(ctx context.Context) (*domain.Cartridge, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.cart == nil {
		return nil, fmt.Errorf("%w: no cartridge loaded", domain.ErrInvalidCartridge)
	}
	return l.cart, nil
}

// Set swaps the cartridge and notifies watchers.
func (l *Loader) Set(c *domain.Cartridge) {
	cartridge.Prepare(c)
	l.mu.Lock()
	l.cart = c
	watchers := append([]chan struct{}(nil), l.watchers...)
	l.mu.Unlock()

	for _, ch := range watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	l.watchers = append(l.watchers, ch)
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, w := range l.watchers {
			if w == ch {
				l.watchers = append(l.watchers[:i], l.watchers[i+1:]...)
				break
			}
		}
	}()
	return ch, nil
}
