package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(sessionID)
		session.Address = "0.2"
		session.Turn = 3
		session.Cycle = 11
		session.State["foo"] = domain.Str("bar")
		session.State["count"] = domain.Num(42)
		session.Stack = append(session.Stack, domain.Frame{
			Return: "0.3", Owner: "0.5", Type: domain.BlockYield,
			Writable: map[string]domain.Value{},
			Readable: map[string]domain.Value{"who": domain.Str("Ann")},
		})
		session.AddCheckpoint(domain.Snapshot(session, []domain.Event{{Kind: domain.EventDialog, Body: "hi"}}), 0)

		err := store.Save(ctx, sessionID, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, session.Address, loaded.Address)
		assert.Equal(t, session.Turn, loaded.Turn)
		assert.Equal(t, session.Cycle, loaded.Cycle)
		assert.Equal(t, "bar", loaded.State["foo"].String())
		n, ok := loaded.State["count"].Float()
		assert.True(t, ok)
		assert.Equal(t, 42.0, n)
		require.Len(t, loaded.Stack, 1)
		assert.Equal(t, domain.BlockYield, loaded.Stack[0].Type)
		assert.NotNil(t, loaded.Stack[0].Writable)
		require.Len(t, loaded.Checkpoints, 1)
		assert.Equal(t, "hi", loaded.Checkpoints[0].Events[0].Body)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSession(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1))
		_ = store.Save(ctx, id2, domain.NewSession(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
