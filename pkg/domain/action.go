package domain

import "time"

// OpType identifies an instruction for the host.
type OpType string

// Standard Op Types
const (
	// OpRequestInput asks the host to collect player input.
	OpRequestInput OpType = "request-input"

	// OpPlayMedia asks the host to play speech, audio or show an image.
	OpPlayMedia OpType = "play-media"

	// OpSleep asks the host to pause playback.
	OpSleep OpType = "sleep"

	// OpStoryError reports a fatal story error.
	OpStoryError OpType = "story-error"

	// OpStoryEnd reports that the story finished.
	OpStoryEnd OpType = "story-end"
)

// MediaKind describes the payload of a play-media op.
type MediaKind string

const (
	MediaSpeech MediaKind = "speech"
	MediaAudio  MediaKind = "audio"
	MediaImage  MediaKind = "image"
)

// FieldSpec declares one value to extract from player input.
type FieldSpec struct {
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	Options     []string `json:"options,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Op is a single host instruction. Only the fields relevant to Type are set.
type Op struct {
	Type       OpType        `json:"type"`
	Kind       MediaKind     `json:"kind,omitempty"`
	From       string        `json:"from,omitempty"`
	To         []string      `json:"to,omitempty"`
	Body       string        `json:"body,omitempty"`
	Voice      string        `json:"voice,omitempty"`
	URL        string        `json:"url,omitempty"`
	Volume     float64       `json:"volume,omitempty"`
	Fade       time.Duration `json:"fade,omitempty"`
	Background bool          `json:"background,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Fields     []FieldSpec   `json:"fields,omitempty"`
	Retry      int           `json:"retry,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Address    string        `json:"address,omitempty"`
}

// Seam reports whether this op hands control back to the host.
func (o Op) Seam() (Seam, bool) {
	switch o.Type {
	case OpRequestInput:
		return SeamInput, true
	case OpPlayMedia:
		return SeamMedia, true
	case OpStoryError:
		return SeamError, true
	case OpStoryEnd:
		return SeamFinish, true
	default:
		return "", false
	}
}

// StoryError builds a story-error op.
func StoryError(reason string) Op {
	return Op{Type: OpStoryError, Reason: reason}
}

// StoryEnd builds a story-end op.
func StoryEnd() Op {
	return Op{Type: OpStoryEnd}
}

// Sleep builds a sleep op.
func Sleep(d time.Duration) Op {
	return Op{Type: OpSleep, Duration: d}
}

// Seam is the reason an advance call returned.
type Seam string

const (
	SeamInput  Seam = "input"
	SeamMedia  Seam = "media"
	SeamGrant  Seam = "grant"
	SeamError  Seam = "error"
	SeamFinish Seam = "finish"
)
