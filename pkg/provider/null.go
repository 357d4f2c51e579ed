package provider

import (
	"context"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
)

// Null answers every request with an empty result. Generation calls succeed
// with empty output; fetching reports domain.ErrUnavailable.
type Null struct{}

var _ ports.ServiceProvider = Null{}

func (Null) GenerateText(context.Context, ports.TextRequest) (string, error) { return "", nil }

func (Null) GenerateJSON(context.Context, ports.TextRequest, map[string]any) (map[string]any, error) {
	return map[string]any{}, nil
}

func (Null) GenerateChat(context.Context, []ports.ChatMessage, []string) (string, error) {
	return "", nil
}

func (Null) GenerateSpeech(context.Context, ports.SpeechRequest) (string, error) { return "", nil }

func (Null) GenerateVoice(context.Context, string) (string, error) { return "", nil }

func (Null) GenerateMusic(context.Context, string, time.Duration) (string, error) { return "", nil }

func (Null) GenerateSound(context.Context, string, time.Duration) (string, error) { return "", nil }

func (Null) GenerateImage(context.Context, string) (string, error) { return "", nil }

func (Null) ModerateText(context.Context, string) (bool, error) { return false, nil }

func (Null) FetchURL(context.Context, string) ([]byte, error) { return nil, domain.ErrUnavailable }
