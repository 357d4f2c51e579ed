// Package openai implements ports.ServiceProvider on the OpenAI API.
//
// Text, JSON and chat generation use chat completions; speech is written to
// a local media directory and returned as a file URL; images and moderation
// map onto their endpoints. Music, sound, voice design and URL fetching
// report domain.ErrUnavailable so that a wrapping provider can supply them.
package openai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when a request names no model.
const DefaultModel = "gpt-4o-mini"

// DefaultVoice is the speech voice used when a speaker has none.
const DefaultVoice = "alloy"

// Provider calls the OpenAI API.
type Provider struct {
	client   sdk.Client
	model    string
	mediaDir string
	logger   *slog.Logger
}

// Option configures a Provider.
type Option func(*providerConfig)

type providerConfig struct {
	apiKey   string
	baseURL  string
	model    string
	mediaDir string
	retries  int
	logger   *slog.Logger
}

// WithAPIKey sets the API key. Without it the SDK reads OPENAI_API_KEY.
func WithAPIKey(key string) Option { return func(c *providerConfig) { c.apiKey = key } }

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(u string) Option { return func(c *providerConfig) { c.baseURL = u } }

// WithModel sets the default completion model.
func WithModel(m string) Option { return func(c *providerConfig) { c.model = m } }

// WithMediaDir sets where synthesized speech is written.
func WithMediaDir(dir string) Option { return func(c *providerConfig) { c.mediaDir = dir } }

// WithMaxRetries bounds SDK retries.
func WithMaxRetries(n int) Option { return func(c *providerConfig) { c.retries = n } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *providerConfig) { c.logger = l } }

// New creates a provider.
func New(opts ...Option) *Provider {
	cfg := providerConfig{
		model:    DefaultModel,
		mediaDir: filepath.Join(os.TempDir(), "fable-media"),
		retries:  2,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(&cfg)
	}

	reqOpts := []option.RequestOption{option.WithMaxRetries(cfg.retries)}
	if cfg.apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(cfg.apiKey))
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	return &Provider{
		client:   sdk.NewClient(reqOpts...),
		model:    cfg.model,
		mediaDir: cfg.mediaDir,
		logger:   cfg.logger,
	}
}

var _ ports.ServiceProvider = (*Provider)(nil)

func (p *Provider) pick(models []string) string {
	for _, m := range models {
		if m != "" {
			return m
		}
	}
	return p.model
}

func textMessages(req ports.TextRequest) []sdk.ChatCompletionMessageParamUnion {
	var msgs []sdk.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, sdk.SystemMessage(req.System))
	}
	if req.Context != "" {
		msgs = append(msgs, sdk.SystemMessage("Story so far:\n"+req.Context))
	}
	return append(msgs, sdk.UserMessage(req.Prompt))
}

func (p *Provider) complete(ctx context.Context, params sdk.ChatCompletionNewParams) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateText completes a single prompt.
func (p *Provider) GenerateText(ctx context.Context, req ports.TextRequest) (string, error) {
	return p.complete(ctx, sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(p.pick(req.Models)),
		Messages: textMessages(req),
	})
}

// GenerateJSON completes a prompt constrained to schema.
func (p *Provider) GenerateJSON(ctx context.Context, req ports.TextRequest, schema map[string]any) (map[string]any, error) {
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(p.pick(req.Models)),
		Messages: textMessages(req),
	}
	if schema != nil {
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &sdk.ResponseFormatJSONSchemaParam{
				JSONSchema: sdk.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "fields",
					Schema: schema,
				},
			},
		}
	}
	raw, err := p.complete(ctx, params)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode json completion: %w", err)
	}
	return out, nil
}

// GenerateChat continues a conversation.
func (p *Provider) GenerateChat(ctx context.Context, messages []ports.ChatMessage, models []string) (string, error) {
	msgs := make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, sdk.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, sdk.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, sdk.UserMessage(m.Content))
		}
	}
	return p.complete(ctx, sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(p.pick(models)),
		Messages: msgs,
	})
}

// GenerateSpeech synthesizes req.Text and returns a file URL. Identical
// requests reuse the file already on disk.
func (p *Provider) GenerateSpeech(ctx context.Context, req ports.SpeechRequest) (string, error) {
	voice := req.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	sum := sha256.Sum256([]byte(voice + "\x00" + req.Text))
	path := filepath.Join(p.mediaDir, hex.EncodeToString(sum[:12])+".mp3")
	if _, err := os.Stat(path); err == nil {
		return fileURL(path), nil
	}

	resp, err := p.client.Audio.Speech.New(ctx, sdk.AudioSpeechNewParams{
		Model: sdk.SpeechModelTTS1,
		Input: req.Text,
		Voice: sdk.AudioSpeechNewParamsVoice(voice),
	})
	if err != nil {
		return "", fmt.Errorf("speech: %w", err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(p.mediaDir, 0o755); err != nil {
		return "", fmt.Errorf("speech: %w", err)
	}
	f, err := os.CreateTemp(p.mediaDir, "tmp-*.mp3")
	if err != nil {
		return "", fmt.Errorf("speech: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("speech: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("speech: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("speech: %w", err)
	}
	p.logger.DebugContext(ctx, "speech synthesized", "voice", voice, "path", path)
	return fileURL(path), nil
}

func fileURL(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// GenerateImage returns the URL of a generated image.
func (p *Provider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Images.Generate(ctx, sdk.ImageGenerateParams{
		Prompt:         prompt,
		Model:          sdk.ImageModelDallE3,
		ResponseFormat: sdk.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("image: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", errors.New("image: no data returned")
	}
	return resp.Data[0].URL, nil
}

// ModerateText reports whether the moderation endpoint flags text.
func (p *Provider) ModerateText(ctx context.Context, text string) (bool, error) {
	resp, err := p.client.Moderations.New(ctx, sdk.ModerationNewParams{
		Input: sdk.ModerationNewParamsInputUnion{OfString: sdk.String(text)},
	})
	if err != nil {
		return false, fmt.Errorf("moderation: %w", err)
	}
	for _, r := range resp.Results {
		if r.Flagged {
			return true, nil
		}
	}
	return false, nil
}

// GenerateVoice is not offered by the API.
func (p *Provider) GenerateVoice(context.Context, string) (string, error) {
	return "", domain.ErrUnavailable
}

// GenerateMusic is not offered by the API.
func (p *Provider) GenerateMusic(context.Context, string, time.Duration) (string, error) {
	return "", domain.ErrUnavailable
}

// GenerateSound is not offered by the API.
func (p *Provider) GenerateSound(context.Context, string, time.Duration) (string, error) {
	return "", domain.ErrUnavailable
}

// FetchURL is left to provider.Web.
func (p *Provider) FetchURL(context.Context, string) ([]byte, error) {
	return nil, domain.ErrUnavailable
}
