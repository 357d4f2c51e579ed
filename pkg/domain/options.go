package domain

import "time"

// Default budgets.
const (
	DefaultReam           = 256
	DefaultMaxCheckpoints = 64
	DefaultInputRetryMax  = 2
)

// Options tune a single advance call.
type Options struct {
	// Verbose collects a dispatch trace in Info.
	Verbose bool `json:"verbose,omitempty"`
	// Seed and Loop select the deterministic random stream.
	Seed string `json:"seed"`
	Loop int    `json:"loop"`
	// Ream bounds dispatches per call before a grant seam.
	Ream int `json:"ream"`
	// GenerateAudio enables text-to-speech for dialogue.
	GenerateAudio bool `json:"generate_audio,omitempty"`
	// GenerateImage enables image generation for image nodes.
	GenerateImage bool `json:"generate_image,omitempty"`
	// MaxCheckpoints bounds the retained checkpoint list.
	MaxCheckpoints int `json:"max_checkpoints"`
	// InputRetryMax bounds re-prompts after failed extraction.
	InputRetryMax int `json:"input_retry_max"`
	// Models lists preferred generation models, best first.
	Models []string `json:"models,omitempty"`
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		Ream:           DefaultReam,
		MaxCheckpoints: DefaultMaxCheckpoints,
		InputRetryMax:  DefaultInputRetryMax,
	}
}

// WithDefaults fills zero-valued budgets.
func (o Options) WithDefaults() Options {
	if o.Ream <= 0 {
		o.Ream = DefaultReam
	}
	if o.MaxCheckpoints == 0 {
		o.MaxCheckpoints = DefaultMaxCheckpoints
	}
	if o.InputRetryMax < 0 {
		o.InputRetryMax = 0
	}
	return o
}

// Cost aggregates collaborator usage during one advance call.
type Cost struct {
	Calls   map[string]int `json:"calls,omitempty"`
	Elapsed time.Duration  `json:"elapsed"`
}

// Info carries diagnostics for one advance call.
type Info struct {
	Reason     string   `json:"reason,omitempty"`
	Dispatches int      `json:"dispatches"`
	Cost       Cost     `json:"cost"`
	Trace      []string `json:"trace,omitempty"`
}

// Result is the outcome of an advance call.
type Result struct {
	Ops     []Op     `json:"ops"`
	Session *Session `json:"session"`
	Seam    Seam     `json:"seam"`
	Address string   `json:"address,omitempty"`
	Info    Info     `json:"info"`
}
