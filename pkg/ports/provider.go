package ports

import (
	"context"
	"time"
)

// TextRequest asks for generated text.
type TextRequest struct {
	Prompt string
	// Context is the surrounding story text the prompt is embedded in.
	Context string
	System  string
	// Models lists preferred models, best first.
	Models []string
}

// ChatMessage is one turn of a chat completion.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SpeechRequest asks for synthesized speech.
type SpeechRequest struct {
	Text    string
	Speaker string
	Voice   string
}

// ServiceProvider is the engine's gateway to external services.
// Every call may fail; the engine degrades to an empty result.
type ServiceProvider interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	GenerateJSON(ctx context.Context, req TextRequest, schema map[string]any) (map[string]any, error)
	GenerateChat(ctx context.Context, messages []ChatMessage, models []string) (string, error)

	// GenerateSpeech returns a URL for the synthesized audio.
	GenerateSpeech(ctx context.Context, req SpeechRequest) (string, error)
	// GenerateVoice creates a voice from a description and returns its ID.
	GenerateVoice(ctx context.Context, description string) (string, error)
	GenerateMusic(ctx context.Context, prompt string, duration time.Duration) (string, error)
	GenerateSound(ctx context.Context, prompt string, duration time.Duration) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)

	// ModerateText reports whether text should be rejected.
	ModerateText(ctx context.Context, text string) (bool, error)
	FetchURL(ctx context.Context, url string) ([]byte, error)
}
