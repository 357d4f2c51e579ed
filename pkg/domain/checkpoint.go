package domain

// EventKind classifies a recorded story event.
type EventKind string

const (
	EventDialog EventKind = "dialog"
	EventInput  EventKind = "input"
	EventMedia  EventKind = "media"
)

// Event is one entry of the playthrough log queried by scripts.
type Event struct {
	Kind    EventKind `json:"kind"`
	Time    int64     `json:"time"`
	Turn    int       `json:"turn"`
	From    string    `json:"from,omitempty"`
	To      []string  `json:"to,omitempty"`
	Body    string    `json:"body,omitempty"`
	Address string    `json:"address,omitempty"`
}

// Checkpoint is a restorable snapshot of a session.
type Checkpoint struct {
	Address    string           `json:"address,omitempty"`
	Turn       int              `json:"turn"`
	Cycle      int              `json:"cycle"`
	Time       int64            `json:"time"`
	State      map[string]Value `json:"state"`
	Meta       map[string]Value `json:"meta"`
	Cache      map[string]Value `json:"cache"`
	Stack      []Frame          `json:"stack"`
	Events     []Event          `json:"events"`
	OutroFired bool             `json:"outro_fired,omitempty"`
	Resume     bool             `json:"resume,omitempty"`
	Variation  Variation        `json:"variation"`
}

// Snapshot captures the restorable fields of s together with the events
// recorded since the previous checkpoint.
func Snapshot(s *Session, events []Event) Checkpoint {
	return Checkpoint{
		Address:    s.Address,
		Turn:       s.Turn,
		Cycle:      s.Cycle,
		Time:       s.Time,
		State:      CloneValues(s.State),
		Meta:       CloneValues(s.Meta),
		Cache:      CloneValues(s.Cache),
		Stack:      cloneStack(s.Stack),
		Events:     append([]Event{}, events...),
		OutroFired: s.OutroFired,
		Resume:     s.Resume,
		Variation:  s.Variation.Clone(),
	}
}

// Clone returns a deep copy of the checkpoint.
func (c Checkpoint) Clone() Checkpoint {
	c.State = CloneValues(c.State)
	c.Meta = CloneValues(c.Meta)
	c.Cache = CloneValues(c.Cache)
	c.Stack = cloneStack(c.Stack)
	c.Events = append([]Event{}, c.Events...)
	c.Variation = c.Variation.Clone()
	return c
}
