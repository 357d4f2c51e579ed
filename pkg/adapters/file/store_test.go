package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/fable/pkg/adapters/file"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SessionStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := file.New(dir)

	s := domain.NewSession("hero")
	s.Turn = 1
	require.NoError(t, store.Save(ctx, "hero", s))
	s.Turn = 2
	require.NoError(t, store.Save(ctx, "hero", s))

	loaded, err := store.Load(ctx, "hero")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Turn)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files should not survive a save")
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	store := file.New(t.TempDir())
	err := store.Save(context.Background(), "../escape", domain.NewSession("x"))
	assert.Error(t, err)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "nope"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644))
	_, err := file.New(dir).Load(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}
