package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/fable/pkg/adapters/openai"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 0,
		"model":   "test",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

type recorded struct {
	Model    string           `json:"model"`
	Messages []map[string]any `json:"messages"`
}

func newServer(t *testing.T, last *recorded) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, last))
		content := "Once upon a time."
		if strings.Contains(string(body), "json_schema") {
			content = `{"name":"Ada"}`
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(content))
	})
	mux.HandleFunc("/moderations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "mod-1",
			"model":   "omni-moderation-latest",
			"results": []any{map[string]any{"flagged": true}},
		})
	})
	mux.HandleFunc("/audio/speech", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newProvider(t *testing.T, srv *httptest.Server, opts ...openai.Option) *openai.Provider {
	base := []openai.Option{
		openai.WithAPIKey("test"),
		openai.WithBaseURL(srv.URL + "/"),
		openai.WithMaxRetries(0),
	}
	return openai.New(append(base, opts...)...)
}

func TestProvider_GenerateText(t *testing.T) {
	var last recorded
	p := newProvider(t, newServer(t, &last))

	out, err := p.GenerateText(context.Background(), ports.TextRequest{
		Prompt:  "Begin the tale",
		Context: "A dark forest.",
		Models:  []string{"", "gpt-4o"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time.", out)
	assert.Equal(t, "gpt-4o", last.Model)
	assert.Len(t, last.Messages, 2)
}

func TestProvider_GenerateJSON(t *testing.T) {
	var last recorded
	p := newProvider(t, newServer(t, &last), openai.WithModel("small"))

	out, err := p.GenerateJSON(context.Background(), ports.TextRequest{Prompt: "Extract the name"},
		map[string]any{"type": "object"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", out["name"])
	assert.Equal(t, "small", last.Model)
}

func TestProvider_GenerateChat(t *testing.T) {
	var last recorded
	p := newProvider(t, newServer(t, &last))

	_, err := p.GenerateChat(context.Background(), []ports.ChatMessage{
		{Role: "system", Content: "You are a narrator."},
		{Role: "user", Content: "Hi"},
		{Role: "assistant", Content: "Hello"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, last.Messages, 3)
	assert.Equal(t, "assistant", last.Messages[2]["role"])
}

func TestProvider_ModerateText(t *testing.T) {
	var last recorded
	p := newProvider(t, newServer(t, &last))

	flagged, err := p.ModerateText(context.Background(), "something rude")
	require.NoError(t, err)
	assert.True(t, flagged)
}

func TestProvider_GenerateSpeech(t *testing.T) {
	var last recorded
	dir := t.TempDir()
	p := newProvider(t, newServer(t, &last), openai.WithMediaDir(dir))

	u, err := p.GenerateSpeech(context.Background(), ports.SpeechRequest{Text: "Hello", Voice: "nova"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"))

	files, err := filepath.Glob(filepath.Join(dir, "*.mp3"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "ID3", string(data))

	again, err := p.GenerateSpeech(context.Background(), ports.SpeechRequest{Text: "Hello", Voice: "nova"})
	require.NoError(t, err)
	assert.Equal(t, u, again)
}

func TestProvider_Unavailable(t *testing.T) {
	p := openai.New(openai.WithAPIKey("test"))

	_, err := p.GenerateMusic(context.Background(), "drums", 0)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = p.FetchURL(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}
