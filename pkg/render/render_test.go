package render

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/prng"
	"github.com/aretw0/fable/pkg/provider"
	"github.com/aretw0/fable/pkg/script"
	"github.com/stretchr/testify/assert"
)

func newPipeline() (*Pipeline, *provider.Scripted) {
	p := provider.NewScripted()
	return &Pipeline{
		Evaluator: script.New(),
		Provider:  p,
		Random:    prng.New("render", 0, 0),
		Variation: &domain.Variation{},
	}, p
}

func TestInterpolate(t *testing.T) {
	scope := domain.MapScope{
		"name":   domain.Str("Ada"),
		"player": domain.Object(map[string]domain.Value{"hp": domain.Num(7)}),
	}
	assert.Equal(t, "Hi Ada, hp=7, x=", Interpolate("Hi {{name}}, hp={{ player.hp }}, x={{missing}}", scope))
	assert.Equal(t, "no vars", Interpolate("no vars", scope))
}

func TestScripts(t *testing.T) {
	p, _ := newPipeline()
	scope := domain.MapScope{"n": domain.Num(4)}

	assert.Equal(t, "double is 8", p.Render(context.Background(), "double is {$ n * 2 $}", scope))
	assert.Equal(t, "bad {$ nope( $} stays", p.Render(context.Background(), "bad {$ nope( $} stays", scope))
}

func TestPassOrder(t *testing.T) {
	p, _ := newPipeline()
	// The variable pass runs first, so its output feeds the script pass.
	scope := domain.MapScope{"expr": domain.Str("1 + 2")}
	assert.Equal(t, "3", p.Render(context.Background(), "{$ {{expr}} $}", scope))

	// Script output feeds the variation pass.
	scope = domain.MapScope{}
	out := p.Render(context.Background(), `[{$ "cycle" $}:a|b]`, scope)
	assert.Equal(t, "a", out)
}

func TestPassOrder_VariationFeedsGeneration(t *testing.T) {
	p, s := newPipeline()
	s.Text["storm"] = "Waves break."
	s.Text["calm"] = "Water rests."

	first := p.Render(context.Background(), "{% describe a [cycle:storm|calm] sea %}", domain.MapScope{})
	second := p.Render(context.Background(), "{% describe a [cycle:storm|calm] sea %}", domain.MapScope{})
	assert.Equal(t, "Waves break.", first)
	assert.Equal(t, "Water rests.", second)

	calls := s.Calls()
	if assert.Len(t, calls, 2) {
		assert.Contains(t, calls[0].Arg, "storm")
		assert.Contains(t, calls[1].Arg, "calm")
		for _, c := range calls {
			assert.NotContains(t, c.Arg, "[cycle:", "generation sees resolved variation")
		}
	}
}

func TestVary_Cycle(t *testing.T) {
	p, _ := newPipeline()
	var got []string
	for i := 0; i < 4; i++ {
		got = append(got, p.Vary("[cycle:red|green|blue]"))
	}
	assert.Equal(t, []string{"red", "green", "blue", "red"}, got)
	assert.Equal(t, 1, p.Variation.Cycles["[cycle:red|green|blue]"])
}

func TestVary_ShuffleExhaustsBag(t *testing.T) {
	p, _ := newPipeline()
	seen := map[string]int{}
	for i := 0; i < 3; i++ {
		seen[p.Vary("[shuffle:a|b|c]")]++
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, seen)
}

func TestVary_RandomIsDeterministic(t *testing.T) {
	a, _ := newPipeline()
	b, _ := newPipeline()
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Vary("[x|y|z]"), b.Vary("[x|y|z]"))
	}
}

func TestVary_IgnoresPlainBrackets(t *testing.T) {
	p, _ := newPipeline()
	assert.Equal(t, "see [note]", p.Vary("see [note]"))
}

func TestGenerate(t *testing.T) {
	p, s := newPipeline()
	s.Text["weather"] = "  It is raining.  "

	out := p.Render(context.Background(), "Ann says: {% describe the weather %}", domain.MapScope{})
	assert.Equal(t, "Ann says: It is raining.", out)

	s.Fail["GenerateText"] = errors.New("offline")
	out = p.Render(context.Background(), "Ann says: {% describe the weather %}", domain.MapScope{})
	assert.Equal(t, "Ann says: ", out)
}

func TestRenderAttributes(t *testing.T) {
	p, _ := newPipeline()
	scope := domain.MapScope{"who": domain.Str("Bob")}
	out := p.RenderAttributes(context.Background(), map[string]string{
		"from": "{{who}}",
		"if":   "{{who}} == 'Bob'",
		"to":   "#{{who}}",
	}, scope)
	assert.Equal(t, "Bob", out["from"])
	assert.Equal(t, "{{who}} == 'Bob'", out["if"])
	assert.Equal(t, "#{{who}}", out["to"])
}
