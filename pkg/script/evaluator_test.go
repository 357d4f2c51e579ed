package script

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/aretw0/fable/pkg/prng"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]domain.Value) ports.ScriptEnv {
	return ports.ScriptEnv{
		Scope:  domain.MapScope(vars),
		Random: prng.New("test", 0, 0),
		Now:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
		Events: []domain.Event{
			{Kind: domain.EventDialog, From: "Ann", Body: "hello"},
			{Kind: domain.EventInput, From: domain.PlayerSpeaker, Body: "hi ann"},
			{Kind: domain.EventDialog, From: "Bob", Body: "bye"},
		},
	}
}

func TestEvaluate(t *testing.T) {
	ev := New()
	ctx := context.Background()
	vars := map[string]domain.Value{
		"n":      domain.Num(2),
		"name":   domain.Str("Ada"),
		"answer": domain.Str("yes"),
		"items":  domain.List(domain.Num(1), domain.Num(2), domain.Num(3)),
	}

	tests := []struct {
		expr string
		want domain.Value
	}{
		{"n < 3", domain.Bool(true)},
		{"n * 2 + 1", domain.Num(5)},
		{"answer == 'yes'", domain.Bool(true)},
		{"upper(name)", domain.Str("ADA")},
		{"sum(items)", domain.Num(6)},
		{"avg(items)", domain.Num(2)},
		{"clamp(10, 0, 5)", domain.Num(5)},
		{"round(2.456, 1)", domain.Num(2.5)},
		{"contains('Hello World', 'world')", domain.Bool(true)},
		{"join(['a', 'b'], '-')", domain.Str("a-b")},
		{"date()", domain.Str("2024-03-01")},
		{"len(dialog())", domain.Num(2)},
		{"events(\"$[?(@.from == 'Bob')].body\")[0]", domain.Str("bye")},
		{"get('missing', 7)", domain.Num(7)},
		{"true and not false", domain.Bool(true)},
		{"math.floor(2.7)", domain.Num(2)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ev.Evaluate(ctx, tt.expr, env(vars))
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestEvaluate_Error(t *testing.T) {
	_, err := New().Evaluate(context.Background(), "undefined_name + 1", env(map[string]domain.Value{}))
	assert.Error(t, err)
}

func TestExec_WritesBack(t *testing.T) {
	vars := map[string]domain.Value{"n": domain.Num(1), "keep": domain.Str("same")}
	err := New().Exec(context.Background(), `
		n = n + 1
		greeting = "hi " + str(n)
		set("flag", True)
	`, env(vars))
	require.NoError(t, err)

	assert.Equal(t, domain.Num(2), vars["n"])
	assert.Equal(t, domain.Str("hi 2"), vars["greeting"])
	assert.Equal(t, domain.Bool(true), vars["flag"])
	assert.Equal(t, domain.Str("same"), vars["keep"])
}

func TestExec_MutatesInPlace(t *testing.T) {
	vars := map[string]domain.Value{"bag": domain.List(domain.Str("key"))}
	require.NoError(t, New().Exec(context.Background(), "bag.append('lamp')", env(vars)))
	assert.Len(t, vars["bag"].Items(), 2)
}

func TestExec_StepBudget(t *testing.T) {
	ev := New(WithMaxSteps(1000))
	err := ev.Exec(context.Background(), "while True:\n  pass\n", env(map[string]domain.Value{}))
	assert.Error(t, err)
}

func TestExec_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev := New(WithMaxSteps(0))
	err := ev.Exec(ctx, "while True:\n  pass\n", env(map[string]domain.Value{}))
	assert.Error(t, err)
}

func TestRandomHelpersAreDeterministic(t *testing.T) {
	ctx := context.Background()
	a, err := New().Evaluate(ctx, "[randint(1, 100) for _ in range(5)]", env(nil))
	require.NoError(t, err)
	b, err := New().Evaluate(ctx, "[randint(1, 100) for _ in range(5)]", env(nil))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestSelect(t *testing.T) {
	doc := map[string]any{"rooms": []any{map[string]any{"name": "hall"}, map[string]any{"name": "attic"}}}

	got, err := Select(doc, "$.rooms[1].name")
	require.NoError(t, err)
	assert.Equal(t, "attic", got)

	got, err = Select(doc, "$.rooms[*].name")
	require.NoError(t, err)
	assert.Equal(t, []any{"hall", "attic"}, got)
}
