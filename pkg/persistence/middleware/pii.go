package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
)

// Mask replaces the value of every masked key.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the values of variables
// whose names match any pattern. Current state, stack frames and checkpoint
// snapshots are all masked, as are the bodies of recorded input events.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	// The engine keeps using the caller's copy.
	cloned := session.Clone()

	m.mask(cloned.State)
	for i := range cloned.Stack {
		m.mask(cloned.Stack[i].Writable)
		m.mask(cloned.Stack[i].Readable)
	}
	for i := range cloned.Checkpoints {
		cp := &cloned.Checkpoints[i]
		m.mask(cp.State)
		for j := range cp.Stack {
			m.mask(cp.Stack[j].Writable)
			m.mask(cp.Stack[j].Readable)
		}
		for j := range cp.Events {
			if cp.Events[j].Kind == domain.EventInput && len(m.patterns) > 0 {
				cp.Events[j].Body = Mask
			}
		}
	}
	return m.next.Save(ctx, sessionID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) mask(values map[string]domain.Value) {
	for k, v := range values {
		if m.matches(k) {
			values[k] = domain.Str(Mask)
			continue
		}
		if v.Kind() == domain.KindObject {
			fields := v.Fields()
			m.mask(fields)
			values[k] = domain.Object(fields)
		}
	}
}
