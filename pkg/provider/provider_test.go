package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/fable/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScripted_Matching(t *testing.T) {
	s := NewScripted()
	s.Text["weather"] = "It rains."
	s.Text["weather in Paris"] = "It pours."

	got, err := s.GenerateText(context.Background(), ports.TextRequest{Prompt: "describe the weather in Paris today"})
	require.NoError(t, err)
	assert.Equal(t, "It pours.", got, "longest key wins")

	got, err = s.GenerateText(context.Background(), ports.TextRequest{Prompt: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 2, s.CallCount("GenerateText"))
}

func TestCached_ReusesResponses(t *testing.T) {
	s := NewScripted()
	s.Media["a cat"] = "https://img/cat.png"
	c, err := NewCached(s, 8)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		url, err := c.GenerateImage(ctx, "a cat")
		require.NoError(t, err)
		assert.Equal(t, "https://img/cat.png", url)
	}
	assert.Equal(t, 1, s.CallCount("GenerateImage"))
	assert.Equal(t, 1, c.Len())
}

func TestCached_DoesNotCacheFailures(t *testing.T) {
	s := NewScripted()
	s.Fail["GenerateText"] = errors.New("boom")
	c, err := NewCached(s, 8)
	require.NoError(t, err)

	_, err = c.GenerateText(context.Background(), ports.TextRequest{Prompt: "x"})
	assert.Error(t, err)
	_, err = c.GenerateText(context.Background(), ports.TextRequest{Prompt: "x"})
	assert.Error(t, err)
	assert.Equal(t, 2, s.CallCount("GenerateText"))
}

type panicky struct{ Null }

func (panicky) GenerateText(context.Context, ports.TextRequest) (string, error) {
	panic("provider exploded")
}

func TestSafe_Degrades(t *testing.T) {
	s := NewScripted()
	s.Fail["GenerateSpeech"] = errors.New("quota")
	safe := NewSafe(s, nil)

	url, err := safe.GenerateSpeech(context.Background(), ports.SpeechRequest{Text: "hi"})
	assert.NoError(t, err)
	assert.Empty(t, url)

	out, err := NewSafe(panicky{}, nil).GenerateText(context.Background(), ports.TextRequest{})
	assert.NoError(t, err)
	assert.Empty(t, out)

	_, err = safe.FetchURL(context.Background(), "https://nowhere")
	assert.Error(t, err)
}

func TestWeb_FetchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	web := NewWeb(nil, srv.Client())
	body, err := web.FetchURL(context.Background(), srv.URL+"/data")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	_, err = web.FetchURL(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}
