package domain

// Voice describes how a speaker should sound.
// ID names a provider voice; Description is used to generate one when ID is empty.
type Voice struct {
	ID          string   `json:"id,omitempty" yaml:"id,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Cartridge is a compiled story: the tree plus its lookup tables.
type Cartridge struct {
	Name           string            `json:"name,omitempty" yaml:"name,omitempty"`
	Root           *Node             `json:"root" yaml:"root"`
	Voices         map[string]Voice  `json:"voices,omitempty" yaml:"voices,omitempty"`
	Pronunciations map[string]string `json:"pronunciations,omitempty" yaml:"pronunciations,omitempty"`
	Meta           map[string]any    `json:"meta,omitempty" yaml:"meta,omitempty"`
}
