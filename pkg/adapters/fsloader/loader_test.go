package fsloader_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/fable/pkg/adapters/fsloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tale.fable")
	require.NoError(t, os.WriteFile(path, []byte("<p>Once.</p>"), 0o644))

	c, err := fsloader.New(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tale", c.Name)
	require.Len(t, c.Root.Children, 1)
	assert.Equal(t, "Once.", c.Root.Children[0].Text)
}

func TestLoader_Missing(t *testing.T) {
	_, err := fsloader.New(filepath.Join(t.TempDir(), "none.json")).Load(context.Background())
	assert.Error(t, err)
}

func TestLoader_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "tale.fable")
	require.NoError(t, os.WriteFile(path, []byte("<p>Once.</p>"), 0o644))

	l := fsloader.New(path)
	l.Debounce = 10 * time.Millisecond
	ch, err := l.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("<p>Twice.</p>"), 0o644))

	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("expected change signal")
	}
}
