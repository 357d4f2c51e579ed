package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/fable/pkg/ports"
)

// Safe converts every failure (error or panic) of the wrapped provider into
// an empty result and a warning. The story keeps running.
type Safe struct {
	next   ports.ServiceProvider
	logger *slog.Logger
}

// NewSafe wraps next. A nil next behaves like Null.
func NewSafe(next ports.ServiceProvider, logger *slog.Logger) *Safe {
	if next == nil {
		next = Null{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Safe{next: next, logger: logger}
}

var _ ports.ServiceProvider = (*Safe)(nil)

func guard[T any](ctx context.Context, s *Safe, method string, fn func() (T, error)) (out T) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WarnContext(ctx, "collaborator panicked", "method", method, "err", fmt.Errorf("%v", r))
			var zero T
			out = zero
		}
	}()
	v, err := fn()
	if err != nil {
		s.logger.WarnContext(ctx, "collaborator failed", "method", method, "err", err)
		var zero T
		return zero
	}
	return v
}

func (s *Safe) GenerateText(ctx context.Context, req ports.TextRequest) (string, error) {
	return guard(ctx, s, "GenerateText", func() (string, error) { return s.next.GenerateText(ctx, req) }), nil
}

func (s *Safe) GenerateJSON(ctx context.Context, req ports.TextRequest, schema map[string]any) (map[string]any, error) {
	out := guard(ctx, s, "GenerateJSON", func() (map[string]any, error) { return s.next.GenerateJSON(ctx, req, schema) })
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func (s *Safe) GenerateChat(ctx context.Context, messages []ports.ChatMessage, models []string) (string, error) {
	return guard(ctx, s, "GenerateChat", func() (string, error) { return s.next.GenerateChat(ctx, messages, models) }), nil
}

func (s *Safe) GenerateSpeech(ctx context.Context, req ports.SpeechRequest) (string, error) {
	return guard(ctx, s, "GenerateSpeech", func() (string, error) { return s.next.GenerateSpeech(ctx, req) }), nil
}

func (s *Safe) GenerateVoice(ctx context.Context, description string) (string, error) {
	return guard(ctx, s, "GenerateVoice", func() (string, error) { return s.next.GenerateVoice(ctx, description) }), nil
}

func (s *Safe) GenerateMusic(ctx context.Context, prompt string, d time.Duration) (string, error) {
	return guard(ctx, s, "GenerateMusic", func() (string, error) { return s.next.GenerateMusic(ctx, prompt, d) }), nil
}

func (s *Safe) GenerateSound(ctx context.Context, prompt string, d time.Duration) (string, error) {
	return guard(ctx, s, "GenerateSound", func() (string, error) { return s.next.GenerateSound(ctx, prompt, d) }), nil
}

func (s *Safe) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return guard(ctx, s, "GenerateImage", func() (string, error) { return s.next.GenerateImage(ctx, prompt) }), nil
}

// ModerateText fails open: an unavailable moderator never blocks input.
func (s *Safe) ModerateText(ctx context.Context, text string) (bool, error) {
	return guard(ctx, s, "ModerateText", func() (bool, error) { return s.next.ModerateText(ctx, text) }), nil
}

// FetchURL reports failures, since callers must tell "empty" from "missing".
func (s *Safe) FetchURL(ctx context.Context, url string) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch %s: %v", url, r)
		}
		if err != nil {
			s.logger.WarnContext(ctx, "collaborator failed", "method", "FetchURL", "err", err)
		}
	}()
	return s.next.FetchURL(ctx, url)
}
