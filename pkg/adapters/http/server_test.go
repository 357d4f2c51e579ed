package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/fable"
	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const story = `
<p>What is your name?</p>
<input to="name">Your name?</input>
<p>Hello, {{name}}.</p>`

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	return newStoryServer(t, story, opts...)
}

func newStoryServer(t *testing.T, markup string, opts ...Option) *httptest.Server {
	t.Helper()
	loader, err := memory.NewFromMarkup(markup)
	require.NoError(t, err)
	eng, err := fable.New("", fable.WithLoader(loader))
	require.NoError(t, err)

	handler, err := NewHandler(eng, session.NewManager(memory.NewStore()), opts...)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAdvance_PlaysThroughStory(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/sessions/ada/advance"

	resp := post(t, url, `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[domain.Result](t, resp)
	assert.Equal(t, domain.SeamMedia, res.Seam)
	assert.Equal(t, "What is your name?", res.Ops[0].Body)

	res = decode[domain.Result](t, post(t, url, `{}`))
	assert.Equal(t, domain.SeamInput, res.Seam)

	res = decode[domain.Result](t, post(t, url, `{"input":"Ada"}`))
	require.NotEmpty(t, res.Ops)
	assert.Equal(t, "Hello, Ada.", res.Ops[0].Body)
	assert.Equal(t, domain.SeamFinish, res.Seam)

	got, err := http.Get(srv.URL + "/sessions/ada")
	require.NoError(t, err)
	defer got.Body.Close()
	sess := decode[domain.Session](t, got)
	assert.Equal(t, domain.Str("Ada"), sess.State["name"])
}

func TestAdvance_Resume(t *testing.T) {
	srv := newStoryServer(t, `<resume><p>Welcome back.</p></resume>`+story)
	url := srv.URL + "/sessions/bo/advance"

	res := decode[domain.Result](t, post(t, url, `{"resume":true}`))
	assert.Equal(t, "What is your name?", res.Ops[0].Body, "a new session starts at the top")

	res = decode[domain.Result](t, post(t, url, `{}`))
	assert.Equal(t, domain.SeamInput, res.Seam)

	resp := post(t, url, `{"resume":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res = decode[domain.Result](t, resp)
	require.NotEmpty(t, res.Ops)
	assert.Equal(t, "Welcome back.", res.Ops[0].Body)
	assert.Equal(t, domain.SeamMedia, res.Seam)

	res = decode[domain.Result](t, post(t, url, `{}`))
	assert.Equal(t, domain.SeamInput, res.Seam, "play continues where the session left off")

	res = decode[domain.Result](t, post(t, url, `{"input":"Bo"}`))
	require.NotEmpty(t, res.Ops)
	assert.Equal(t, "Hello, Bo.", res.Ops[0].Body)
}

func TestAdvance_RejectsInvalidBody(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv.URL+"/sessions/ada/advance", `{"input": 42}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, srv.URL+"/sessions/bad%20id/advance", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessions_ListRevertDelete(t *testing.T) {
	srv := newTestServer(t)
	post(t, srv.URL+"/sessions/a/advance", `{}`)
	post(t, srv.URL+"/sessions/a/advance", `{}`)

	list, err := http.Get(srv.URL + "/sessions")
	require.NoError(t, err)
	defer list.Body.Close()
	ids := decode[map[string][]string](t, list)
	assert.Equal(t, []string{"a"}, ids["sessions"])

	resp := post(t, srv.URL+"/sessions/a/revert", `{"index":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess := decode[domain.Session](t, resp)
	assert.Equal(t, 1, sess.Turn)

	resp = post(t, srv.URL+"/sessions/a/revert", `{"index":9}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/sessions/a", nil)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	missing, err := http.Get(srv.URL + "/sessions/a")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestGetTreeAndSpec(t *testing.T) {
	srv := newTestServer(t, WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fable_seams_total 0\n"))
	})))

	resp, err := http.Get(srv.URL + "/tree")
	require.NoError(t, err)
	defer resp.Body.Close()
	cart := decode[domain.Cartridge](t, resp)
	require.NotNil(t, cart.Root)
	assert.Len(t, cart.Root.Children, 3)

	doc, err := http.Get(srv.URL + "/openapi.yaml")
	require.NoError(t, err)
	doc.Body.Close()
	assert.Equal(t, http.StatusOK, doc.StatusCode)

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	metrics.Body.Close()
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
}

func TestLoadSpec(t *testing.T) {
	doc, err := LoadSpec(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/sessions/{id}/advance"))
}

func TestSubscribeEvents_Session(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/s1/events", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	post(t, srv.URL+"/sessions/s1/advance", `{}`)

	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: {") {
			var diff domain.SessionDiff
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines.Text(), "data: ")), &diff))
			assert.Equal(t, "s1", diff.SessionID)
			return
		}
	}
	t.Fatal("no diff received")
}

func TestStreamManager_Reload(t *testing.T) {
	srv := NewServer(nil, nil)
	ch, cancel := srv.Streams.Subscribe(reloadTopic)
	defer cancel()

	srv.NotifyReload("tale")
	assert.Equal(t, `{"story":"tale"}`, <-ch)

	cancel()
	cancel()
}
