package handlers

import (
	"collection-route-service/internal/api/dto"
	"collection-route-service/internal/domain"
	"collection-route-service/internal/playback"
	"collection-route-service/internal/ports"
	"collection-route-service/internal/services"
	"fmt"
	"net/http"
	"time"
)

type PlaybackHandler struct {
	Repo     ports.StopRepository
	Resolver *services.RouteResolver
	Engine   *playback.Engine
	// Ceiling bounds route resolution for a start request.
	Ceiling time.Duration
}

// Start resolves every vehicle's route and starts its playback. Vehicles
// already running start over.
func (h *PlaybackHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaybackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Vehicles) == 0 {
		writeError(w, r, http.StatusBadRequest, "vehicles are required")
		return
	}
	if len(req.Vehicles) > maxRoutesPerRequest {
		writeError(w, r, http.StatusBadRequest, "too many vehicles")
		return
	}

	cat, err := loadCatalog(r.Context(), h.Repo, req.Stitch)
	if err != nil {
		writeFailure(w, r, "start playback", err)
		return
	}

	seen := make(map[int]struct{}, len(req.Vehicles))
	routes := make([]domain.LogicalRoute, 0, len(req.Vehicles))
	vehicles := make([]domain.Vehicle, 0, len(req.Vehicles))
	for _, v := range req.Vehicles {
		if _, dup := seen[v.VehicleID]; dup {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("vehicle %d is listed twice", v.VehicleID))
			return
		}
		seen[v.VehicleID] = struct{}{}

		if v.Capacity <= 0 {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("vehicle %d capacity must be positive", v.VehicleID))
			return
		}
		route, err := cat.route(domain.VehicleID(v.VehicleID), v.Stops)
		if err != nil {
			writeFailure(w, r, "start playback", err)
			return
		}
		routes = append(routes, route)
		vehicles = append(vehicles, domain.NewVehicle(domain.VehicleID(v.VehicleID), v.Capacity, stopIDs(v.Assigned)))
	}

	ctx, cancel := withCeiling(r.Context(), h.Ceiling)
	defer cancel()

	results, batchErr := h.Resolver.ResolveMany(ctx, routes)
	settle(r, routes, results, batchErr)

	res := dto.ListSessionsResponse{Sessions: make([]dto.SessionResponse, 0, len(results))}
	for i, result := range results {
		if result.Err != nil {
			res.Sessions = append(res.Sessions, failedSession(routes[i], result.Err))
			continue
		}
		session, err := h.Engine.Start(playback.VehicleRoute{
			Vehicle:   vehicles[i],
			Stops:     routes[i].Stops,
			Path:      result.Path,
			Alignment: result.Alignment,
		})
		if err != nil {
			res.Sessions = append(res.Sessions, failedSession(routes[i], err))
			continue
		}
		res.Sessions = append(res.Sessions, sessionResponse(session))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func sessionResponse(s playback.Session) dto.SessionResponse {
	started := s.StartedAt
	ids := make([]int, len(s.Stops))
	for i, stop := range s.Stops {
		ids[i] = int(stop.ID)
	}
	return dto.SessionResponse{
		SessionID: s.ID,
		VehicleID: int(s.Vehicle.ID),
		StartedAt: &started,
		Source:    string(s.Path.Source),
		Points:    len(s.Path.Coordinates),
		Stops:     ids,
	}
}

func failedSession(route domain.LogicalRoute, err error) dto.SessionResponse {
	return dto.SessionResponse{
		VehicleID: int(route.VehicleID),
		Stops:     intIDs(route.StopIDs()),
		Error:     err.Error(),
	}
}

func (h *PlaybackHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions := h.Engine.Sessions()
	res := dto.ListSessionsResponse{Sessions: make([]dto.SessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		res.Sessions = append(res.Sessions, sessionResponse(s))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *PlaybackHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleParam(w, r)
	if !ok {
		return
	}
	h.writeSnapshot(w, r, id)
}

func (h *PlaybackHandler) writeSnapshot(w http.ResponseWriter, r *http.Request, id domain.VehicleID) {
	snap, err := h.Engine.Snapshot(id)
	if err != nil {
		writeFailure(w, r, "playback snapshot", err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (h *PlaybackHandler) Pause(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleParam(w, r)
	if !ok {
		return
	}
	if err := h.Engine.Pause(id); err != nil {
		writeFailure(w, r, "pause playback", err)
		return
	}
	h.writeSnapshot(w, r, id)
}

func (h *PlaybackHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleParam(w, r)
	if !ok {
		return
	}
	if err := h.Engine.Resume(id); err != nil {
		writeFailure(w, r, "resume playback", err)
		return
	}
	h.writeSnapshot(w, r, id)
}

// Stop is idempotent: stopping a vehicle that is not running succeeds.
func (h *PlaybackHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleParam(w, r)
	if !ok {
		return
	}
	h.Engine.Stop(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *PlaybackHandler) StopAll(w http.ResponseWriter, r *http.Request) {
	h.Engine.StopAll()
	w.WriteHeader(http.StatusNoContent)
}
