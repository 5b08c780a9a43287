package handlers

import (
	"collection-route-service/internal/api/dto"
	"collection-route-service/internal/ports"
	"net/http"
)

// StopHandler exposes read-only stop retrieval endpoints.
type StopHandler struct {
	Repo ports.StopRepository
}

func (h *StopHandler) List(w http.ResponseWriter, r *http.Request) {
	stops, err := h.Repo.ListStops(r.Context())
	if err != nil {
		writeFailure(w, r, "list stops", err)
		return
	}

	res := dto.ListStopsResponse{
		Stops: make([]dto.StopResponse, 0, len(stops)),
	}
	for _, s := range stops {
		res.Stops = append(res.Stops, dto.StopResponse{
			StopID: int(s.ID),
			Role:   string(s.Role),
			Name:   s.Name,
			Lat:    s.Coordinates.Lat,
			Lng:    s.Coordinates.Lng,
			Demand: s.Demand,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}
