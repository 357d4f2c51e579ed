package runner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/fable"
	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/session"
)

func newEngine(t *testing.T, markup string) *fable.Engine {
	t.Helper()
	loader, err := memory.NewFromMarkup(markup)
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}
	engine, err := fable.New("", fable.WithLoader(loader))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

const greeting = `
<p>Welcome, traveller.</p>
<input to="name">What is your name?</input>
<p>Farewell, {{name}}.</p>`

func TestRunner_Run_BasicFlow(t *testing.T) {
	engine := newEngine(t, greeting)
	out := &bytes.Buffer{}

	r := NewRunner(WithInputHandler(NewTextHandler(strings.NewReader("Ada\n"), out)))
	sess, err := r.Run(context.Background(), engine)
	if err != nil {
		t.Fatalf("Runner failed: %v", err)
	}

	for _, want := range []string{"Welcome, traveller.", "What is your name?", "Farewell, Ada."} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected output to contain %q, got %q", want, out.String())
		}
	}
	if got := sess.State["name"]; !got.Equal(domain.Str("Ada")) {
		t.Errorf("Expected name to be stored, got %v", got)
	}
}

func TestRunner_Run_QuitAndEOF(t *testing.T) {
	engine := newEngine(t, greeting)

	r := NewRunner(WithInputHandler(NewTextHandler(strings.NewReader("quit\n"), &bytes.Buffer{})))
	sess, err := r.Run(context.Background(), engine)
	if err != nil {
		t.Fatalf("Expected quit to stop cleanly, got %v", err)
	}
	if _, ok := sess.State["name"]; ok {
		t.Error("Expected no name after quitting")
	}

	r = NewRunner(WithInputHandler(NewTextHandler(strings.NewReader(""), &bytes.Buffer{})))
	if _, err := r.Run(context.Background(), engine); err != nil {
		t.Fatalf("Expected EOF to stop cleanly, got %v", err)
	}
}

func TestRunner_Run_PersistsAndResumes(t *testing.T) {
	engine := newEngine(t, greeting)
	sessions := session.NewManager(memory.NewStore())
	ctx := context.Background()

	first := NewRunner(
		WithSessions(sessions),
		WithSessionID("hero"),
		WithInputHandler(NewTextHandler(strings.NewReader(""), &bytes.Buffer{})),
	)
	if _, err := first.Run(ctx, engine); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	out := &bytes.Buffer{}
	second := NewRunner(
		WithSessions(sessions),
		WithSessionID("hero"),
		WithInputHandler(NewTextHandler(strings.NewReader("Bo\n"), out)),
	)
	if _, err := second.Run(ctx, engine); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if !strings.Contains(out.String(), "Farewell, Bo.") {
		t.Errorf("Expected resumed story to finish, got %q", out.String())
	}

	stored, err := sessions.Load(ctx, "hero")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !stored.State["name"].Equal(domain.Str("Bo")) {
		t.Errorf("Expected stored name Bo, got %v", stored.State["name"])
	}
}

func TestRunner_Run_PlaysResumeSection(t *testing.T) {
	engine := newEngine(t, `<resume><p>Welcome back.</p></resume>`+greeting)
	sessions := session.NewManager(memory.NewStore())
	ctx := context.Background()

	first := &bytes.Buffer{}
	r := NewRunner(
		WithSessions(sessions),
		WithSessionID("hero"),
		WithInputHandler(NewTextHandler(strings.NewReader(""), first)),
	)
	if _, err := r.Run(ctx, engine); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if strings.Contains(first.String(), "Welcome back.") {
		t.Errorf("Expected no resume section on a new session, got %q", first.String())
	}

	second := &bytes.Buffer{}
	r = NewRunner(
		WithSessions(sessions),
		WithSessionID("hero"),
		WithInputHandler(NewTextHandler(strings.NewReader("Bo\n"), second)),
	)
	if _, err := r.Run(ctx, engine); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	out := second.String()
	back := strings.Index(out, "Welcome back.")
	bye := strings.Index(out, "Farewell, Bo.")
	if back < 0 || bye < 0 || back > bye {
		t.Errorf("Expected the resume section before the rest of the story, got %q", out)
	}
	if strings.Count(out, "Welcome back.") != 1 {
		t.Errorf("Expected the resume section once, got %q", out)
	}
}

func TestRunner_Run_TurnLimit(t *testing.T) {
	engine := newEngine(t, `<while cond="True"><p>again</p></while>`)

	r := NewRunner(WithMaxTurns(5), WithInputHandler(NewTextHandler(strings.NewReader(""), &bytes.Buffer{})))
	if _, err := r.Run(context.Background(), engine); !errors.Is(err, ErrTurnLimit) {
		t.Fatalf("Expected ErrTurnLimit, got %v", err)
	}
}

func TestRunner_Run_StoryError(t *testing.T) {
	engine := newEngine(t, `<jump to="#{{missing}}"/>`)

	r := NewRunner(WithInputHandler(NewTextHandler(strings.NewReader(""), &bytes.Buffer{})))
	if _, err := r.Run(context.Background(), engine); !errors.Is(err, ErrStoryFailed) {
		t.Fatalf("Expected ErrStoryFailed, got %v", err)
	}
}
