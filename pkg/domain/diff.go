package domain

// SessionDiff represents the changes between two sessions.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Address *string `json:"address,omitempty"`
	Turn    *int    `json:"turn,omitempty"`

	// State contains only changed, added or deleted keys.
	// Deleted keys are present with a null value.
	State map[string]*Value `json:"state,omitempty"`

	// Checkpoints counts checkpoints appended since the old session.
	Checkpoints int `json:"checkpoints,omitempty"`

	// Events lists dialog and input recorded in the new checkpoints.
	Events []Event `json:"events,omitempty"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, it returns a diff representing the entire newSession.
func Diff(oldSession, newSession *Session) *SessionDiff {
	if newSession == nil {
		return nil
	}

	diff := &SessionDiff{SessionID: newSession.ID}

	if oldSession == nil || oldSession.Address != newSession.Address {
		addr := newSession.Address
		diff.Address = &addr
	}
	if oldSession == nil || oldSession.Turn != newSession.Turn {
		turn := newSession.Turn
		diff.Turn = &turn
	}

	diff.State = diffState(oldSession, newSession)

	oldLen := 0
	if oldSession != nil {
		oldLen = len(oldSession.Checkpoints)
	}
	if n := len(newSession.Checkpoints); n > oldLen {
		diff.Checkpoints = n - oldLen
		for _, cp := range newSession.Checkpoints[oldLen:] {
			diff.Events = append(diff.Events, cp.Events...)
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffState(old, new *Session) map[string]*Value {
	delta := make(map[string]*Value)

	if old == nil {
		for k, v := range new.State {
			v := v
			delta[k] = &v
		}
		return nilIfEmpty(delta)
	}

	for k, newVal := range new.State {
		oldVal, exists := old.State[k]
		if !exists || !oldVal.Equal(newVal) {
			v := newVal
			delta[k] = &v
		}
	}

	for k := range old.State {
		if _, exists := new.State[k]; !exists {
			delta[k] = nil
		}
	}

	return nilIfEmpty(delta)
}

func nilIfEmpty(m map[string]*Value) map[string]*Value {
	if len(m) == 0 {
		return nil
	}
	return m
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.Address == nil &&
		d.Turn == nil &&
		len(d.State) == 0 &&
		d.Checkpoints == 0
}
