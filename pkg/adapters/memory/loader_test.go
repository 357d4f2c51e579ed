package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_FromMarkup(t *testing.T) {
	l, err := memory.NewFromMarkup(`<p>Hello.</p><p>Bye.</p>`)
	require.NoError(t, err)

	c, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, c.Root.Children, 2)
	assert.Equal(t, "0.1", c.Root.Children[1].Address)
}

func TestLoader_Empty(t *testing.T) {
	_, err := memory.NewLoader(nil).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidCartridge)
}

func TestLoader_SetNotifiesWatchers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := memory.NewLoader(&domain.Cartridge{Name: "v1"})
	ch, err := l.Watch(ctx)
	require.NoError(t, err)

	l.Set(&domain.Cartridge{Name: "v2", Root: &domain.Node{Type: domain.TagRoot}})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected reload signal")
	}
	c, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", c.Name)
}
