package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/aretw0/fable/pkg/ports"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of memoized responses.
const DefaultCacheSize = 512

// Cached memoizes generation responses by content. Identical prompts reuse
// the earlier result, which keeps replays cheap and stable. Moderation and
// fetching are cached too; failures never are.
type Cached struct {
	next  ports.ServiceProvider
	cache *lru.Cache[string, any]
}

// NewCached wraps next with an LRU of size entries.
func NewCached(next ports.ServiceProvider, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, any](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: cache}, nil
}

var _ ports.ServiceProvider = (*Cached)(nil)

// Len returns the number of cached responses.
func (c *Cached) Len() int { return c.cache.Len() }

func key(method string, parts ...any) string {
	h := sha256.New()
	h.Write([]byte(method))
	for _, p := range parts {
		b, _ := json.Marshal(p)
		h.Write([]byte{0})
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func cachedCall[T any](c *Cached, k string, fn func() (T, error)) (T, error) {
	if v, ok := c.cache.Get(k); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	v, err := fn()
	if err != nil {
		return v, err
	}
	c.cache.Add(k, v)
	return v, nil
}

func (c *Cached) GenerateText(ctx context.Context, req ports.TextRequest) (string, error) {
	return cachedCall(c, key("text", req), func() (string, error) { return c.next.GenerateText(ctx, req) })
}

func (c *Cached) GenerateJSON(ctx context.Context, req ports.TextRequest, schema map[string]any) (map[string]any, error) {
	return cachedCall(c, key("json", req, schema), func() (map[string]any, error) { return c.next.GenerateJSON(ctx, req, schema) })
}

func (c *Cached) GenerateChat(ctx context.Context, messages []ports.ChatMessage, models []string) (string, error) {
	return cachedCall(c, key("chat", messages, models), func() (string, error) { return c.next.GenerateChat(ctx, messages, models) })
}

func (c *Cached) GenerateSpeech(ctx context.Context, req ports.SpeechRequest) (string, error) {
	return cachedCall(c, key("speech", req), func() (string, error) { return c.next.GenerateSpeech(ctx, req) })
}

func (c *Cached) GenerateVoice(ctx context.Context, description string) (string, error) {
	return cachedCall(c, key("voice", description), func() (string, error) { return c.next.GenerateVoice(ctx, description) })
}

func (c *Cached) GenerateMusic(ctx context.Context, prompt string, d time.Duration) (string, error) {
	return cachedCall(c, key("music", prompt, d), func() (string, error) { return c.next.GenerateMusic(ctx, prompt, d) })
}

func (c *Cached) GenerateSound(ctx context.Context, prompt string, d time.Duration) (string, error) {
	return cachedCall(c, key("sound", prompt, d), func() (string, error) { return c.next.GenerateSound(ctx, prompt, d) })
}

func (c *Cached) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return cachedCall(c, key("image", prompt), func() (string, error) { return c.next.GenerateImage(ctx, prompt) })
}

func (c *Cached) ModerateText(ctx context.Context, text string) (bool, error) {
	return cachedCall(c, key("moderate", text), func() (bool, error) { return c.next.ModerateText(ctx, text) })
}

func (c *Cached) FetchURL(ctx context.Context, url string) ([]byte, error) {
	return cachedCall(c, key("fetch", url), func() ([]byte, error) { return c.next.FetchURL(ctx, url) })
}
