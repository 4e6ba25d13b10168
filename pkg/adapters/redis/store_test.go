package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
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
	store := redis.NewFromClient(client)
	ports.RunTranscriptStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	id := "dialogue-ttl"
	tr := domain.NewTranscript(id)
	tr.Append("Flight?()", false)

	require.NoError(t, store.Save(ctx, id, tr))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, id)

	// Key expiry follows miniredis time.
	mr.FastForward(2 * time.Second)
	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, domain.ErrDialogueNotFound)

	// The index is pruned against the wall clock.
	time.Sleep(1200 * time.Millisecond)
	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	id := "my-dialogue"

	require.NoError(t, store.Save(ctx, id, domain.NewTranscript(id)))

	assert.True(t, mr.Exists("custom:app:my-dialogue"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, id)
}

func TestRedisStore_DefaultPrefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)

	require.NoError(t, store.Save(context.Background(), "d1", domain.NewTranscript("d1")))
	assert.True(t, mr.Exists(redis.DefaultPrefix+"d1"))
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	require.NoError(t, mr.Set(redis.DefaultPrefix+"bad", "{not json"))

	_, err := store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDialogueNotFound)
}
