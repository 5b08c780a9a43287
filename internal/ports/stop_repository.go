package ports

import (
	"collection-route-service/internal/domain"
	"context"
)

// Port: a boundary for retrieving stops and the precomputed edge library.
type StopRepository interface {
	ListStops(ctx context.Context) ([]domain.LogicalStop, error)
	ListEdges(ctx context.Context) ([]domain.Edge, error)
}
