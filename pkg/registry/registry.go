// Package registry holds host functions that story scripts may call.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/schema"
)

// ErrNotFound is returned by Call for unregistered names.
var ErrNotFound = errors.New("function not found")

// Func is a host function. Arguments arrive by keyword.
type Func func(ctx context.Context, args map[string]domain.Value) (domain.Value, error)

type entry struct {
	params schema.Schema
	fn     Func
}

// Registry maps names to host functions. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{funcs: make(map[string]entry)}
}

// Register adds fn under name, replacing any previous function. A nil
// params schema accepts any arguments.
func (r *Registry) Register(name string, params schema.Schema, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = entry{params: params, fn: fn}
}

// RegisterTyped is Register with parameter types given as type strings.
func (r *Registry) RegisterTyped(name string, params map[string]string, fn Func) error {
	s, err := schema.ParseTypeMap(params)
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	r.Register(name, s, fn)
	return nil
}

// Names lists the registered functions in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Params returns the declared parameters of name.
func (r *Registry) Params(name string) (schema.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.funcs[name]
	return e.params, ok
}

// Call validates args against the declared parameters and runs name.
func (r *Registry) Call(ctx context.Context, name string, args map[string]domain.Value) (domain.Value, error) {
	r.mu.RLock()
	e, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		return domain.Null(), fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := schema.Validate(e.params, args); err != nil {
		return domain.Null(), fmt.Errorf("%s: %w", name, err)
	}
	return e.fn(ctx, args)
}
