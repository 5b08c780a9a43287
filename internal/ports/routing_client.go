package ports

import (
	"collection-route-service/internal/domain"
	"context"
)

// Contract for turning an ordered waypoint list into drivable geometry.
type RoutingClient interface {
	// Resolve never fails: provider errors degrade to a fallback path.
	Resolve(ctx context.Context, coords []domain.LatLng) domain.ResolvedPath
}
