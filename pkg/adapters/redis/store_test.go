package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadesk/strata/pkg/adapters/redis"
	"github.com/stratadesk/strata/pkg/domain"
	"github.com/stratadesk/strata/pkg/ports/tests"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestClusterStore_Contract(t *testing.T) {
	_, client := newClient(t)
	tests.RunClusterStoreContract(t, redis.NewClusterStore(client))
}

func TestMetaStore_Contract(t *testing.T) {
	_, client := newClient(t)
	tests.RunMetaStoreContract(t, redis.NewMetaStore(client, ""))
}

func TestClusterStore_TTLExpiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewClusterStore(client, redis.WithClusterTTL(time.Second))
	ctx := context.Background()

	err := store.Save(ctx, domain.Cluster{Name: "work", Path: domain.Path{"root", "sector-1"}})
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "work")
	assert.ErrorIs(t, err, domain.ErrClusterNotFound)

	// The expired name is pruned from the index on List.
	clusters, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, clusters)
}

func TestClusterStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewClusterStore(client, redis.WithClusterPrefix("custom:app:"))
	ctx := context.Background()

	err := store.Save(ctx, domain.Cluster{Name: "media", Path: domain.Path{"root"}})
	require.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:media"), "expected key with custom prefix")
	assert.True(t, mr.Exists("custom:app:index"), "expected index with custom prefix")
}

func TestLocker(t *testing.T) {
	_, client := newClient(t)
	locker := redis.NewLocker(client, "strata:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "vp-1", time.Minute)
	require.NoError(t, err)

	// A second acquisition of the same key must not proceed while held.
	blocked, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(blocked, "vp-1", time.Minute)
	assert.Error(t, err)

	require.NoError(t, unlock(ctx))

	// Released: acquisition succeeds again.
	unlock, err = locker.Lock(ctx, "vp-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

func TestLocker_DistinctKeysDoNotContend(t *testing.T) {
	_, client := newClient(t)
	locker := redis.NewLocker(client, "strata:")
	ctx := context.Background()

	u1, err := locker.Lock(ctx, "vp-1", time.Minute)
	require.NoError(t, err)
	defer func() { _ = u1(ctx) }()

	u2, err := locker.Lock(ctx, "vp-2", time.Minute)
	require.NoError(t, err)
	_ = u2(ctx)
}
