package domain

// Tags understood by the default handler registry.
const (
	TagRoot       = "root"
	TagParagraph  = "p"
	TagText       = "text"
	TagVar        = "var"
	TagIf         = "if"
	TagElse       = "else"
	TagJump       = "jump"
	TagCode       = "code"
	TagScript     = "script"
	TagSleep      = "sleep"
	TagMedia      = "media"
	TagSound      = "sound"
	TagMusic      = "music"
	TagImage      = "image"
	TagSection    = "sec"
	TagDiv        = "div"
	TagGroup      = "group"
	TagOrigin     = "origin"
	TagBlock      = "block"
	TagYield      = "yield"
	TagScope      = "scope"
	TagWhile      = "while"
	TagData       = "data"
	TagCheckpoint = "checkpoint"
	TagIntro      = "intro"
	TagResume     = "resume"
	TagOutro      = "outro"
	TagEnd        = "end"
	TagExit       = "exit"
	TagInput      = "input"
	TagField      = "field"
)

// Attribute names with engine meaning.
const (
	AttrID       = "id"
	AttrType     = "type"
	AttrTo       = "to"
	AttrIf       = "if"
	AttrCond     = "cond"
	AttrPattern  = "pattern"
	AttrFallback = "fallback"
	AttrName     = "name"
	AttrValue    = "value"
	AttrFrom     = "from"
	AttrVoice    = "voice"
	AttrScope    = "scope"
	AttrRetry    = "retry"
	AttrModerate = "moderate"
	AttrDuration = "duration"
	AttrSrc      = "src"
	AttrFormat   = "format"
	AttrPath     = "path"
	AttrVolume   = "volume"
	AttrFade     = "fade"
	AttrBG       = "background"
	AttrPrompt   = "prompt"
	AttrModel    = "model"
	AttrExpr     = "expr"
	AttrOptions  = "options"
	AttrRequired = "required"
	AttrDesc     = "description"
)

// VerbatimAttributes are never passed through the rendering pipeline.
var VerbatimAttributes = map[string]bool{
	AttrID:       true,
	AttrType:     true,
	AttrTo:       true,
	AttrIf:       true,
	AttrCond:     true,
	AttrPattern:  true,
	AttrFallback: true,
	AttrName:     true,
	AttrExpr:     true,
}

const (
	// RootAddress is the address of the tree root.
	RootAddress = "0"

	// AddressEnd is the sentinel return address of the outro frame.
	// Reaching it terminates the story.
	AddressEnd = "@end"

	// PlayerSpeaker identifies the player in dialog events.
	PlayerSpeaker = "player"

	// NarratorSpeaker is used for dialogue without a speaker.
	NarratorSpeaker = "narrator"
)
