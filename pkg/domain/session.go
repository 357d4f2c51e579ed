package domain

import "fmt"

// BlockType classifies a control-flow frame.
type BlockType string

const (
	BlockScope  BlockType = "scope"
	BlockYield  BlockType = "yield"
	BlockIntro  BlockType = "intro"
	BlockResume BlockType = "resume"
	BlockOutro  BlockType = "outro"
)

// Frame is a control-flow stack entry.
// Return is where flow continues once the frame is exhausted; an empty
// Return means "continue past the end of the tree". Owner is the address of
// the container whose subtree the frame guards.
// A nil Writable lets writes fall through to the enclosing frame.
type Frame struct {
	Return   string           `json:"return"`
	Owner    string           `json:"owner"`
	Writable map[string]Value `json:"writable"`
	Readable map[string]Value `json:"readable"`
	Type     BlockType        `json:"type"`
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	f.Writable = CloneValues(f.Writable)
	f.Readable = CloneValues(f.Readable)
	return f
}

// InputEvent is player input waiting to be consumed.
type InputEvent struct {
	Body string `json:"body"`
	Time int64  `json:"time"`
}

// Variation persists the counters behind cycle and shuffle variation groups,
// keyed by the literal group pattern.
type Variation struct {
	Cycles map[string]int   `json:"cycles,omitempty"`
	Bags   map[string][]int `json:"bags,omitempty"`
}

// Clone returns a deep copy.
func (v Variation) Clone() Variation {
	out := Variation{}
	if v.Cycles != nil {
		out.Cycles = make(map[string]int, len(v.Cycles))
		for k, n := range v.Cycles {
			out.Cycles[k] = n
		}
	}
	if v.Bags != nil {
		out.Bags = make(map[string][]int, len(v.Bags))
		for k, bag := range v.Bags {
			out.Bags[k] = append([]int(nil), bag...)
		}
	}
	return out
}

// Session is the persistent state of one playthrough.
// It is owned by the caller and mutated only by the engine during an
// advance call.
type Session struct {
	ID          string           `json:"id"`
	Time        int64            `json:"time"`
	Turn        int              `json:"turn"`
	Cycle       int              `json:"cycle"`
	Address     string           `json:"address,omitempty"`
	Input       *InputEvent      `json:"input,omitempty"`
	Player      string           `json:"player,omitempty"`
	Resume      bool             `json:"resume,omitempty"`
	OutroFired  bool             `json:"outro_fired,omitempty"`
	Target      string           `json:"target,omitempty"`
	Stack       []Frame          `json:"stack"`
	State       map[string]Value `json:"state"`
	Meta        map[string]Value `json:"meta"`
	Cache       map[string]Value `json:"cache"`
	Variation   Variation        `json:"variation"`
	Checkpoints []Checkpoint     `json:"checkpoints"`
}

// NewSession creates an empty session ready for its first turn.
func NewSession(id string) *Session {
	return &Session{
		ID:          id,
		Player:      PlayerSpeaker,
		Stack:       []Frame{},
		State:       map[string]Value{},
		Meta:        map[string]Value{},
		Cache:       map[string]Value{},
		Checkpoints: []Checkpoint{},
	}
}

// Normalize fills nil collections, e.g. after decoding a hand-written session.
func (s *Session) Normalize() {
	if s.Stack == nil {
		s.Stack = []Frame{}
	}
	if s.State == nil {
		s.State = map[string]Value{}
	}
	if s.Meta == nil {
		s.Meta = map[string]Value{}
	}
	if s.Cache == nil {
		s.Cache = map[string]Value{}
	}
	if s.Checkpoints == nil {
		s.Checkpoints = []Checkpoint{}
	}
	if s.Player == "" {
		s.Player = PlayerSpeaker
	}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Input != nil {
		in := *s.Input
		out.Input = &in
	}
	out.Stack = cloneStack(s.Stack)
	out.State = CloneValues(s.State)
	out.Meta = CloneValues(s.Meta)
	out.Cache = CloneValues(s.Cache)
	out.Variation = s.Variation.Clone()
	out.Checkpoints = make([]Checkpoint, len(s.Checkpoints))
	for i, cp := range s.Checkpoints {
		out.Checkpoints[i] = cp.Clone()
	}
	return &out
}

// Top returns the innermost frame or nil.
func (s *Session) Top() *Frame {
	if len(s.Stack) == 0 {
		return nil
	}
	return &s.Stack[len(s.Stack)-1]
}

// Push adds a frame to the stack.
func (s *Session) Push(f Frame) {
	s.Stack = append(s.Stack, f)
}

// Pop removes and returns the innermost frame.
func (s *Session) Pop() (Frame, bool) {
	if len(s.Stack) == 0 {
		return Frame{}, false
	}
	f := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return f, true
}

// AddCheckpoint appends cp, evicting the oldest entries beyond max.
// A max of zero or less keeps every checkpoint.
func (s *Session) AddCheckpoint(cp Checkpoint, max int) {
	s.Checkpoints = append(s.Checkpoints, cp)
	if max > 0 && len(s.Checkpoints) > max {
		s.Checkpoints = append([]Checkpoint(nil), s.Checkpoints[len(s.Checkpoints)-max:]...)
	}
}

// Revert restores the session to checkpoint index and discards every later
// checkpoint. Negative indexes count from the end (-1 is the latest).
func (s *Session) Revert(index int) error {
	if index < 0 {
		index += len(s.Checkpoints)
	}
	if index < 0 || index >= len(s.Checkpoints) {
		return fmt.Errorf("%w: %d of %d", ErrCheckpointNotFound, index, len(s.Checkpoints))
	}
	cp := s.Checkpoints[index].Clone()
	s.Address = cp.Address
	s.Turn = cp.Turn
	s.Cycle = cp.Cycle
	s.Time = cp.Time
	s.State = cp.State
	s.Meta = cp.Meta
	s.Cache = cp.Cache
	s.Stack = cp.Stack
	s.OutroFired = cp.OutroFired
	s.Resume = cp.Resume
	s.Variation = cp.Variation
	s.Input = nil
	s.Target = ""
	s.Checkpoints = s.Checkpoints[:index+1]
	s.Normalize()
	return nil
}

// History returns every recorded event across checkpoints, oldest first.
func (s *Session) History() []Event {
	var out []Event
	for _, cp := range s.Checkpoints {
		out = append(out, cp.Events...)
	}
	return out
}

func cloneStack(stack []Frame) []Frame {
	if stack == nil {
		return nil
	}
	out := make([]Frame, len(stack))
	for i, f := range stack {
		out[i] = f.Clone()
	}
	return out
}
