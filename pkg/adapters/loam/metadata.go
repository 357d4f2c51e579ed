package loam

// ChapterMetadata is the front matter of one story document.
// Every document becomes a child of the story root; Tag picks the
// container (sec by default; intro, outro, resume, block or origin
// place the chapter in the engine's special sections).
type ChapterMetadata struct {
	ID   string `json:"id" mapstructure:"id"`
	Tag  string `json:"tag" mapstructure:"tag"`
	If   string `json:"if" mapstructure:"if"`
	Name string `json:"name" mapstructure:"name"`

	// Attributes are copied onto the chapter node.
	Attributes map[string]string `json:"attributes" mapstructure:"attributes"`

	// Story-wide tables; documents are merged in ID order, later wins.
	Voices         map[string]any    `json:"voices" mapstructure:"voices"`
	Pronunciations map[string]string `json:"pronunciations" mapstructure:"pronunciations"`
	Meta           map[string]any    `json:"meta" mapstructure:"meta"`
}
