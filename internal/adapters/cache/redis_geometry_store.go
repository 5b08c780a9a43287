package cache

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/obs"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis backed geometry store keeping the whole cache as one versioned
// JSON blob under a single key.
type RedisGeometryStore struct {
	client *redis.Client
	key    string
}

func NewRedisGeometryStore(client *redis.Client, key string) *RedisGeometryStore {
	if key == "" {
		key = "route_geometry_cache"
	}
	return &RedisGeometryStore{client: client, key: key}
}

func (r *RedisGeometryStore) LoadSnapshot(ctx context.Context) (_ *domain.CacheSnapshot, err error) {
	defer obs.Time(ctx, "geometry.store.redis.Load")(&err)

	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load geometry store: redis get %q: %w", r.key, err)
	}

	var snap domain.CacheSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("load geometry store: decode blob: %w", err)
	}
	return &snap, nil
}

func (r *RedisGeometryStore) SaveSnapshot(ctx context.Context, snap domain.CacheSnapshot) (err error) {
	defer obs.Time(ctx, "geometry.store.redis.Save")(&err)

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("save geometry store: encode blob: %w", err)
	}
	if err := r.client.Set(ctx, r.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("save geometry store: redis set %q: %w", r.key, err)
	}
	return nil
}
