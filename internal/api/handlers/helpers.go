package handlers

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/obs"
	"collection-route-service/internal/playback"
	"collection-route-service/internal/services"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Str("method", r.Method).Str("path", r.URL.Path).Err(err).Msg("encode failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeJSON reads exactly one JSON object into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// writeFailure maps err to a status code. Unexpected errors are logged and
// hidden behind a generic message.
func writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRoute),
		errors.Is(err, domain.ErrUnknownStop),
		errors.Is(err, playback.ErrInvalidState):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, playback.ErrNotRunning):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, "route resolution timed out")
	default:
		log.Error().Str("req_id", obs.RequestID(r.Context())).Str("op", op).Err(err).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func vehicleParam(w http.ResponseWriter, r *http.Request) (domain.VehicleID, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "vehicle id must be an integer")
		return 0, false
	}
	return domain.VehicleID(id), true
}

func withCeiling(ctx context.Context, ceiling time.Duration) (context.Context, context.CancelFunc) {
	if ceiling <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, ceiling)
}

// settle keeps whatever the batch resolved before the ceiling cut it short.
// Routes left unscheduled are played on straight lines between their stops;
// invalid routes keep their per-route error.
func settle(r *http.Request, routes []domain.LogicalRoute, results []services.RouteResult, batchErr error) {
	degraded := 0
	for i, res := range results {
		if !errors.Is(res.Err, context.DeadlineExceeded) && !errors.Is(res.Err, context.Canceled) {
			continue
		}
		path := domain.FallbackPath(routes[i].Coordinates())
		results[i] = services.RouteResult{Resolution: services.Resolution{
			Path:      path,
			Alignment: services.Align(path, routes[i].Stops),
		}}
		degraded++
	}
	if degraded > 0 || batchErr != nil {
		log.Warn().
			Str("req_id", obs.RequestID(r.Context())).
			Err(batchErr).
			Int("routes", len(routes)).
			Int("fallback", degraded).
			Msg("route resolution cut short")
	}
}

func stopIDs(ids []int) []domain.StopID {
	out := make([]domain.StopID, len(ids))
	for i, id := range ids {
		out[i] = domain.StopID(id)
	}
	return out
}

func intIDs[T ~int](ids []T) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}

// MethodNotAllowed keeps 405 responses in the JSON error format.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
