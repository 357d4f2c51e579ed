package runtime

import "github.com/aretw0/fable/pkg/domain"

// sessionScope resolves variables through the frame stack, then session
// state, then session metadata.
type sessionScope struct {
	s *domain.Session
}

var _ domain.Scope = (*sessionScope)(nil)

func (sc *sessionScope) Lookup(path string) (domain.Value, bool) {
	stack := sc.s.Stack
	for i := len(stack) - 1; i >= 0; i-- {
		if v, ok := domain.LookupPath(stack[i].Writable, path); ok {
			return v, true
		}
		if v, ok := domain.LookupPath(stack[i].Readable, path); ok {
			return v, true
		}
	}
	if v, ok := domain.LookupPath(sc.s.State, path); ok {
		return v, true
	}
	return domain.LookupPath(sc.s.Meta, path)
}

// Set writes to the innermost frame with a writable scope, or to state.
func (sc *sessionScope) Set(key string, v domain.Value) {
	stack := sc.s.Stack
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].Writable != nil {
			stack[i].Writable[key] = v
			return
		}
	}
	sc.s.State[key] = v
}

func (sc *sessionScope) SetGlobal(key string, v domain.Value) {
	sc.s.State[key] = v
}

// Values flattens every visible variable, inner frames shadowing outer ones.
func (sc *sessionScope) Values() map[string]domain.Value {
	out := make(map[string]domain.Value, len(sc.s.State)+len(sc.s.Meta))
	for k, v := range sc.s.Meta {
		out[k] = v
	}
	for k, v := range sc.s.State {
		out[k] = v
	}
	for _, f := range sc.s.Stack {
		for k, v := range f.Readable {
			out[k] = v
		}
		for k, v := range f.Writable {
			out[k] = v
		}
	}
	return out
}
