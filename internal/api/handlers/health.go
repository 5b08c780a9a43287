package handlers

import (
	"collection-route-service/internal/adapters/cache"
	"collection-route-service/internal/playback"
	"net/http"
)

type CacheStatter interface {
	Stats() cache.Stats
}

// HealthHandler is a liveness check that also reports cache and playback
// counters.
type HealthHandler struct {
	Cache  CacheStatter
	Engine *playback.Engine
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	res := map[string]any{"status": "ok"}
	if h.Cache != nil {
		res["cache"] = h.Cache.Stats()
	}
	if h.Engine != nil {
		res["running_vehicles"] = len(h.Engine.Running())
	}
	writeJSON(w, r, http.StatusOK, res)
}
