package domain

import (
	"context"
	"time"
)

// HookType defines the category of a lifecycle event.
type HookType string

const (
	HookDispatch     HookType = "dispatch"
	HookSeam         HookType = "seam"
	HookCollaborator HookType = "collaborator"
)

// HookBase contains common fields for all lifecycle events.
type HookBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      HookType  `json:"type"`
	SessionID string    `json:"session_id"`
	Turn      int       `json:"turn"`
}

// DispatchEvent is emitted every time a node is handed to a handler.
type DispatchEvent struct {
	HookBase
	Address string `json:"address"`
	Tag     string `json:"tag"`
	Skipped bool   `json:"skipped,omitempty"`
}

// SeamEvent is emitted when an advance call stops.
type SeamEvent struct {
	HookBase
	Seam       Seam   `json:"seam"`
	Address    string `json:"address"`
	Ops        int    `json:"ops"`
	Dispatches int    `json:"dispatches"`
	Reason     string `json:"reason,omitempty"`
}

// CollaboratorEvent is emitted after each external service call.
type CollaboratorEvent struct {
	HookBase
	Method   string        `json:"method"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnDispatch     func(context.Context, *DispatchEvent)
	OnSeam         func(context.Context, *SeamEvent)
	OnCollaborator func(context.Context, *CollaboratorEvent)
}

// Merge returns hooks that invoke both h and other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnDispatch:     chain(h.OnDispatch, other.OnDispatch),
		OnSeam:         chain(h.OnSeam, other.OnSeam),
		OnCollaborator: chain(h.OnCollaborator, other.OnCollaborator),
	}
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, ev T) {
		a(ctx, ev)
		b(ctx, ev)
	}
}
