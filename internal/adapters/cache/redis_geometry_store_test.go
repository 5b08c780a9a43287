package cache

import (
	"collection-route-service/internal/domain"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisGeometryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisGeometryStore(client, ""), mr
}

func TestRedisStoreMissingKey(t *testing.T) {
	store, _ := newRedisStore(t)

	snap, err := store.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	in := domain.CacheSnapshot{
		Version:   domain.CacheVersion,
		Timestamp: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Routes:    map[string]domain.ResolvedPath{"a": routedPath(1)},
	}
	require.NoError(t, store.SaveSnapshot(ctx, in))
	assert.True(t, mr.Exists("route_geometry_cache"))

	out, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in.Version, out.Version)
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
	assert.Equal(t, routedPath(1), out.Routes["a"])
}

func TestRedisStoreCorruptBlob(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set("route_geometry_cache", "{not json"))

	_, err := store.LoadSnapshot(context.Background())
	assert.Error(t, err)
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	c := NewGeometryCache(10, store)
	// Put returns without surfacing the write failure
	c.Put("a", routedPath(1))
	assert.Error(t, c.Flush(context.Background()))
}
