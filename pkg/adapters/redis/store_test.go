package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/fable/pkg/adapters/redis"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Minute), redis.WithPrefix("t:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "short", domain.NewSession("short")))
	assert.True(t, mr.Exists("t:short"))
	assert.Equal(t, time.Minute, mr.TTL("t:short"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Load(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
