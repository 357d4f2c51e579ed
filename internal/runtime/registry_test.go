package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/fable/internal/runtime"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shout(tags ...string) runtime.HandlerFunc {
	return runtime.HandlerFunc{
		Names: tags,
		Fn: func(_ context.Context, a *runtime.Action) runtime.Outcome {
			return runtime.Outcome{Ops: []domain.Op{domain.StoryError("shout")}}
		},
	}
}

func TestRegistry_ExtendLeavesBaseUntouched(t *testing.T) {
	base := runtime.DefaultRegistry()
	ext := base.Extend(shout("boom"))

	assert.NotContains(t, base.Tags(), "boom")
	assert.Contains(t, ext.Tags(), "boom")
	assert.Len(t, ext.Tags(), len(base.Tags())+1)

	tags := base.Tags()
	tags[0] = "mutated"
	assert.NotContains(t, base.Tags(), "mutated", "Tags returns a copy")
}

func TestRegistry_WithFallback(t *testing.T) {
	base := runtime.NewRegistry()
	custom := base.WithFallback(shout())

	assert.Empty(t, base.Tags())
	_, isFunc := base.Lookup("unknown").(runtime.HandlerFunc)
	assert.False(t, isFunc, "the base keeps the container fallback")
	_, isFunc = custom.Lookup("unknown").(runtime.HandlerFunc)
	assert.True(t, isFunc)
}

func TestEngine_RegistryFixedAtConstruction(t *testing.T) {
	base := runtime.DefaultRegistry()
	e := newEngine(runtime.WithRegistry(base), runtime.WithHandlers(shout("p")))
	before := e.Registry().Tags()

	_ = base.Extend(shout("late"))
	assert.Equal(t, before, e.Registry().Tags())
	assert.NotContains(t, e.Registry().Tags(), "late")

	c := mustCart(t, `<p>Hi.</p>`)
	res := e.Advance(context.Background(), c, domain.NewSession("s1"), domain.Options{}, nil)
	assert.Equal(t, domain.SeamError, res.Seam, "handlers given at construction replace built-ins")
	require.NotEmpty(t, res.Ops)
	assert.Equal(t, "shout", res.Ops[len(res.Ops)-1].Reason)
}
