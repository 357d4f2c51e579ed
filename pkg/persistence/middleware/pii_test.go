package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := memory.NewStore()
	secureStore := middleware.NewPIIMiddleware([]string{"password", "ssn"})(underlyingStore)

	ctx := context.Background()
	sessionID := "pii-session"
	s := domain.NewSession(sessionID)
	s.State["username"] = domain.Str("jdoe")
	s.State["user_password"] = domain.Str("secret123")
	s.State["details"] = domain.Object(map[string]domain.Value{
		"address":    domain.Str("123 St"),
		"ssn_number": domain.Str("999-99-9999"),
	})
	s.Stack = append(s.Stack, domain.Frame{Type: domain.BlockScope, Writable: map[string]domain.Value{
		"password": domain.Str("hunter2"),
	}})
	s.AddCheckpoint(domain.Snapshot(s, []domain.Event{{Kind: domain.EventInput, Body: "my ssn is 999"}}), 0)

	require.NoError(t, secureStore.Save(ctx, sessionID, s))

	assert.Equal(t, "secret123", s.State["user_password"].String(), "caller's session must stay intact")

	stored, err := underlyingStore.Load(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, "jdoe", stored.State["username"].String())
	assert.Equal(t, middleware.Mask, stored.State["user_password"].String())
	ssn, ok := stored.State["details"].Get("ssn_number")
	require.True(t, ok)
	assert.Equal(t, middleware.Mask, ssn.String())
	addr, _ := stored.State["details"].Get("address")
	assert.Equal(t, "123 St", addr.String())
	assert.Equal(t, middleware.Mask, stored.Stack[0].Writable["password"].String())

	cp := stored.Checkpoints[0]
	assert.Equal(t, middleware.Mask, cp.State["user_password"].String())
	assert.Equal(t, middleware.Mask, cp.Events[0].Body)
}

func TestChain_Order(t *testing.T) {
	underlyingStore := memory.NewStore()
	key := make([]byte, 32)
	store := middleware.Chain(underlyingStore,
		middleware.NewPIIMiddleware([]string{"secret"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)

	ctx := context.Background()
	s := domain.NewSession("c")
	s.State["secret"] = domain.Str("x")
	require.NoError(t, store.Save(ctx, "c", s))

	loaded, err := store.Load(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.State["secret"].String(), "masking happens before sealing")
}
