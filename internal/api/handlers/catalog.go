package handlers

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/ports"
	"collection-route-service/internal/services"
	"context"
	"fmt"
)

// catalog is the stop and edge data a request builds its routes from.
type catalog struct {
	index services.StopIndex
	lib   *services.EdgeLibrary
}

func loadCatalog(ctx context.Context, repo ports.StopRepository, withEdges bool) (catalog, error) {
	stops, err := repo.ListStops(ctx)
	if err != nil {
		return catalog{}, fmt.Errorf("load stops: %w", err)
	}
	c := catalog{index: services.NewStopIndex(stops)}
	if !withEdges {
		return c, nil
	}

	depot, ok := c.index.Depot()
	if !ok {
		return catalog{}, fmt.Errorf("%w: no depot stop is defined", domain.ErrInvalidRoute)
	}
	edges, err := repo.ListEdges(ctx)
	if err != nil {
		return catalog{}, fmt.Errorf("load edges: %w", err)
	}
	c.lib = services.NewEdgeLibrary(depot, edges)
	return c, nil
}

// route builds a vehicle's logical route. When the catalog carries an edge
// library, ids are the zones of a depot tour to stitch.
func (c catalog) route(vehicle domain.VehicleID, ids []int) (domain.LogicalRoute, error) {
	stops := stopIDs(ids)
	if c.lib != nil {
		for _, id := range stops {
			if _, ok := c.index[id]; !ok {
				return domain.LogicalRoute{}, fmt.Errorf("vehicle %d: %w %d", vehicle, domain.ErrUnknownStop, id)
			}
		}
		stops = services.BuildTrajectory(c.lib.Depot(), stops, c.lib)
	}
	return c.index.Route(vehicle, stops)
}

func (c catalog) coordinates(ids []int) ([]domain.LatLng, error) {
	coords := make([]domain.LatLng, 0, len(ids))
	for _, id := range stopIDs(ids) {
		s, ok := c.index[id]
		if !ok {
			return nil, fmt.Errorf("%w %d", domain.ErrUnknownStop, id)
		}
		coords = append(coords, s.Coordinates)
	}
	return coords, nil
}
