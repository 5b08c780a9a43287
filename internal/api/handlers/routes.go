package handlers

import (
	"collection-route-service/internal/api/dto"
	"collection-route-service/internal/domain"
	"collection-route-service/internal/ports"
	"collection-route-service/internal/services"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const maxRoutesPerRequest = 50

type RouteHandler struct {
	Repo     ports.StopRepository
	Resolver *services.RouteResolver
	// Distances is optional; without it /routes/matrix answers 501.
	Distances ports.DistanceMatrixProvider
	Ceiling   time.Duration
}

// Resolve turns per-vehicle stop lists into geometry aligned with the stops.
// A route that cannot be routed, or is not reached before the ceiling, comes
// back as a straight-line fallback, so per-route errors only report invalid
// input.
func (h *RouteHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req dto.ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Routes) == 0 {
		writeError(w, r, http.StatusBadRequest, "routes are required")
		return
	}
	if len(req.Routes) > maxRoutesPerRequest {
		writeError(w, r, http.StatusBadRequest, "too many routes")
		return
	}

	cat, err := loadCatalog(r.Context(), h.Repo, req.Stitch)
	if err != nil {
		writeFailure(w, r, "resolve routes", err)
		return
	}

	routes := make([]domain.LogicalRoute, 0, len(req.Routes))
	for _, rr := range req.Routes {
		route, err := cat.route(domain.VehicleID(rr.VehicleID), rr.Stops)
		if err != nil {
			writeFailure(w, r, "resolve routes", err)
			return
		}
		routes = append(routes, route)
	}

	ctx, cancel := withCeiling(r.Context(), h.Ceiling)
	defer cancel()

	results, batchErr := h.Resolver.ResolveMany(ctx, routes)
	settle(r, routes, results, batchErr)

	res := dto.ResolveResponse{Routes: make([]dto.RouteResponse, 0, len(results))}
	for i, result := range results {
		res.Routes = append(res.Routes, routeResponse(routes[i], result))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func routeResponse(route domain.LogicalRoute, result services.RouteResult) dto.RouteResponse {
	out := dto.RouteResponse{
		VehicleID: int(route.VehicleID),
		Stops:     intIDs(route.StopIDs()),
	}
	if result.Err != nil {
		out.Error = result.Err.Error()
		return out
	}

	out.Coordinates = make([][]float64, 0, len(result.Path.Coordinates))
	for _, c := range result.Path.Coordinates {
		out.Coordinates = append(out.Coordinates, c.CoordsToList())
	}
	out.Alignment = []int(result.Alignment)
	out.Source = string(result.Path.Source)
	out.DistanceKm = result.Path.TotalDistanceKm
	out.DurationMin = result.Path.TotalDurationMin
	out.CacheHit = result.CacheHit
	return out
}

// Matrix returns the provider's distance and duration matrix between stops.
func (h *RouteHandler) Matrix(w http.ResponseWriter, r *http.Request) {
	if h.Distances == nil {
		writeError(w, r, http.StatusNotImplemented, "distance matrix is not available")
		return
	}

	var req dto.MatrixRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Stops) < 2 {
		writeError(w, r, http.StatusBadRequest, "at least two stops are required")
		return
	}

	cat, err := loadCatalog(r.Context(), h.Repo, false)
	if err != nil {
		writeFailure(w, r, "distance matrix", err)
		return
	}
	coords, err := cat.coordinates(req.Stops)
	if err != nil {
		writeFailure(w, r, "distance matrix", err)
		return
	}

	m, err := h.Distances.Table(r.Context(), coords)
	if err != nil {
		log.Warn().Err(err).Int("stops", len(req.Stops)).Msg("distance matrix failed")
		writeError(w, r, http.StatusBadGateway, "routing provider failed")
		return
	}

	res := dto.MatrixResponse{
		Stops:        req.Stops,
		DistancesKm:  make([][]float64, len(m)),
		DurationsMin: make([][]float64, len(m)),
	}
	for i, row := range m {
		res.DistancesKm[i] = make([]float64, len(row))
		res.DurationsMin[i] = make([]float64, len(row))
		for j, cell := range row {
			res.DistancesKm[i][j] = cell.DistanceKm
			res.DurationsMin[i][j] = cell.DurationMin
		}
	}
	writeJSON(w, r, http.StatusOK, res)
}
