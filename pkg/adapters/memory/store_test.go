package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSessionStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	s := domain.NewSession("iso")
	s.State["hp"] = domain.Num(3)
	require.NoError(t, store.Save(ctx, "iso", s))

	s.State["hp"] = domain.Num(0)
	loaded, err := store.Load(ctx, "iso")
	require.NoError(t, err)
	hp, _ := loaded.State["hp"].Float()
	assert.Equal(t, 3.0, hp)

	loaded.State["hp"] = domain.Num(9)
	again, err := store.Load(ctx, "iso")
	require.NoError(t, err)
	hp, _ = again.State["hp"].Float()
	assert.Equal(t, 3.0, hp)
}
