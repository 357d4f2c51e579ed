package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/fable/pkg/adapters/sqlite"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "fable.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, openStore(t))
}

func TestSQLiteStore_History(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	s := domain.NewSession("h")
	for turn := 1; turn <= 3; turn++ {
		s.Turn = turn
		s.Address = "0." + string(rune('0'+turn))
		s.AddCheckpoint(domain.Snapshot(s, nil), 2)
	}
	require.NoError(t, store.Save(ctx, "h", s))

	history, err := store.History(ctx, "h")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Turn)
	assert.Equal(t, "0.3", history[1].Address)

	require.NoError(t, store.Delete(ctx, "h"))
	history, err = store.History(ctx, "h")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSQLiteStore_OpenRequiresPath(t *testing.T) {
	_, err := sqlite.Open(" ")
	assert.Error(t, err)
}
