package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/wizard/pkg/adapters/redis"
	"github.com/aretw0/wizard/pkg/domain"
	contract "github.com/aretw0/wizard/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	contract.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "guide_progress_g1", domain.NewSession("g1")))
	assert.True(t, mr.Exists(redis.DefaultPrefix+"guide_progress_g1"))
	assert.Equal(t, time.Minute, mr.TTL(redis.DefaultPrefix+"guide_progress_g1"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "guide_progress_g1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithPrefix("tenant:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "p1:guide_progress_g1", domain.NewSession("g1")))
	assert.True(t, mr.Exists("tenant:p1:guide_progress_g1"))

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1:guide_progress_g1"}, keys)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client)
	mr.Close()

	err := store.Save(context.Background(), "k", domain.NewSession("g1"))
	assert.Error(t, err)
}
