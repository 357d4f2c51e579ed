package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Call(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterTyped("greet", map[string]string{"name": "string"},
		func(_ context.Context, args map[string]domain.Value) (domain.Value, error) {
			return domain.Str("hello " + args["name"].String()), nil
		}))

	out, err := r.Call(context.Background(), "greet", map[string]domain.Value{"name": domain.Str("Ada")})
	require.NoError(t, err)
	assert.Equal(t, "hello Ada", out.String())

	_, err = r.Call(context.Background(), "greet", map[string]domain.Value{"name": domain.Num(1)})
	require.Error(t, err)
	assert.Len(t, schema.ValidationErrors(err), 1)

	_, err = r.Call(context.Background(), "wave", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistry_NamesAndParams(t *testing.T) {
	r := New()
	noop := func(context.Context, map[string]domain.Value) (domain.Value, error) { return domain.Null(), nil }
	r.Register("b", nil, noop)
	r.Register("a", schema.Schema{"n": schema.Int()}, noop)

	assert.Equal(t, []string{"a", "b"}, r.Names())
	params, ok := r.Params("a")
	require.True(t, ok)
	assert.Equal(t, []string{"n"}, params.Names())

	assert.Error(t, r.RegisterTyped("c", map[string]string{"x": "date"}, noop))
}
