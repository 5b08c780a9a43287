package ports

import (
	"collection-route-service/internal/domain"
	"context"
)

// Durable storage behind the geometry cache.
type GeometryStore interface {
	// LoadSnapshot returns nil when nothing has been stored yet.
	LoadSnapshot(ctx context.Context) (*domain.CacheSnapshot, error)
	SaveSnapshot(ctx context.Context, snap domain.CacheSnapshot) error
}

// Key-value cache of resolved paths keyed by domain.RouteKey.
type GeometryCache interface {
	Get(key string) (domain.ResolvedPath, bool)
	Put(key string, path domain.ResolvedPath)
	Len() int
}
