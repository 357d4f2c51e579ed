package runtime

import (
	"context"
	"sort"

	"github.com/aretw0/fable/pkg/domain"
)

// Outcome is what a handler decided for its node.
// Next is the node flow moves to; nil means the enclosing container is
// exhausted. Jump marks a deliberate transfer that may leave frames behind.
type Outcome struct {
	Ops  []domain.Op
	Next *domain.Node
	Jump bool
}

// Handler executes one kind of node. Handlers never fail: story problems
// are reported as story-error ops.
type Handler interface {
	Tags() []string
	Handle(ctx context.Context, a *Action) Outcome
}

// HandlerFunc adapts a function to a Handler for a fixed set of tags.
type HandlerFunc struct {
	Names []string
	Fn    func(ctx context.Context, a *Action) Outcome
}

func (h HandlerFunc) Tags() []string { return h.Names }

func (h HandlerFunc) Handle(ctx context.Context, a *Action) Outcome { return h.Fn(ctx, a) }

// Registry maps node tags to handlers. Unknown tags go to the fallback.
// A Registry never changes once built; Extend returns a new one.
type Registry struct {
	byTag    map[string]Handler
	fallback Handler
}

// NewRegistry builds a registry from handlers. A later handler replaces an
// earlier one for the tags they share. Unknown tags descend into children.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{
		byTag:    make(map[string]Handler),
		fallback: containerHandler{},
	}
	r.add(handlers)
	return r
}

// Extend returns a copy of r with handlers added on top.
func (r *Registry) Extend(handlers ...Handler) *Registry {
	out := &Registry{
		byTag:    make(map[string]Handler, len(r.byTag)+len(handlers)),
		fallback: r.fallback,
	}
	for tag, h := range r.byTag {
		out.byTag[tag] = h
	}
	out.add(handlers)
	return out
}

// WithFallback returns a copy of r whose unknown tags go to h.
func (r *Registry) WithFallback(h Handler) *Registry {
	out := r.Extend()
	out.fallback = h
	return out
}

func (r *Registry) add(handlers []Handler) {
	for _, h := range handlers {
		for _, tag := range h.Tags() {
			r.byTag[tag] = h
		}
	}
}

// Lookup returns the handler for tag.
func (r *Registry) Lookup(tag string) Handler {
	if h, ok := r.byTag[tag]; ok {
		return h
	}
	return r.fallback
}

// Tags lists every registered tag, sorted.
func (r *Registry) Tags() []string {
	out := make([]string, 0, len(r.byTag))
	for tag := range r.byTag {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry returns a registry with every built-in tag.
func DefaultRegistry() *Registry {
	return NewRegistry(
		containerHandler{},
		passHandler{},
		textHandler{},
		varHandler{},
		codeHandler{},
		ifHandler{},
		jumpHandler{},
		yieldHandler{},
		scopeHandler{},
		whileHandler{},
		endHandler{},
		exitHandler{},
		checkpointHandler{},
		sleepHandler{},
		mediaHandler{},
		generatedAudioHandler{},
		imageHandler{},
		dataHandler{},
		inputHandler{},
	)
}
