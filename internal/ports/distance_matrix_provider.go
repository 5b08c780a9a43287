package ports

import (
	"collection-route-service/internal/domain"
	"context"
)

// Distance and travel duration between two locations.
type DistanceResult struct {
	DistanceKm  float64 `json:"distanceKm"`
	DurationMin float64 `json:"durationMin"`
}

// Square matrix indexed like the requested coordinates.
type DistanceMatrix [][]DistanceResult

// Optional extension of a routing provider that supports many-to-many lookups.
type DistanceMatrixProvider interface {
	Table(ctx context.Context, coords []domain.LatLng) (DistanceMatrix, error)
}
