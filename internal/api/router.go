package api

import (
	"collection-route-service/internal/api/handlers"
	"collection-route-service/internal/playback"
	"collection-route-service/internal/ports"
	"collection-route-service/internal/services"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Repo     ports.StopRepository
	Resolver *services.RouteResolver
	// Distances is optional.
	Distances ports.DistanceMatrixProvider
	Engine    *playback.Engine
	Hub       *handlers.Hub
	Cache     handlers.CacheStatter
	// Ceiling bounds route resolution per request.
	Ceiling time.Duration
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()

	health := &handlers.HealthHandler{Cache: d.Cache, Engine: d.Engine}
	stops := &handlers.StopHandler{Repo: d.Repo}
	routes := &handlers.RouteHandler{
		Repo:      d.Repo,
		Resolver:  d.Resolver,
		Distances: d.Distances,
		Ceiling:   d.Ceiling,
	}
	pb := &handlers.PlaybackHandler{
		Repo:     d.Repo,
		Resolver: d.Resolver,
		Engine:   d.Engine,
		Ceiling:  d.Ceiling,
	}

	r.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	r.HandleFunc("/stops", stops.List).Methods(http.MethodGet)
	r.HandleFunc("/routes/resolve", routes.Resolve).Methods(http.MethodPost)
	r.HandleFunc("/routes/matrix", routes.Matrix).Methods(http.MethodPost)

	r.HandleFunc("/playback", pb.Start).Methods(http.MethodPost)
	r.HandleFunc("/playback", pb.List).Methods(http.MethodGet)
	r.HandleFunc("/playback", pb.StopAll).Methods(http.MethodDelete)
	r.HandleFunc("/playback/geojson", pb.GeoJSON).Methods(http.MethodGet)
	if d.Hub != nil {
		r.HandleFunc("/playback/stream", d.Hub.Serve).Methods(http.MethodGet)
	}
	r.HandleFunc("/playback/{id:[0-9]+}", pb.Get).Methods(http.MethodGet)
	r.HandleFunc("/playback/{id:[0-9]+}", pb.Stop).Methods(http.MethodDelete)
	r.HandleFunc("/playback/{id:[0-9]+}/pause", pb.Pause).Methods(http.MethodPost)
	r.HandleFunc("/playback/{id:[0-9]+}/resume", pb.Resume).Methods(http.MethodPost)

	r.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowed)

	return requestIDMiddleware(loggingMiddleware(r))
}
