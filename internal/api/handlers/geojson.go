package handlers

import (
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func point(lat, lng float64) orb.Point { return orb.Point{lng, lat} }

// GeoJSON renders the running routes, their stops and the vehicles' current
// positions as one FeatureCollection.
func (h *PlaybackHandler) GeoJSON(w http.ResponseWriter, r *http.Request) {
	fc := geojson.NewFeatureCollection()

	for _, s := range h.Engine.Sessions() {
		line := make(orb.LineString, 0, len(s.Path.Coordinates))
		for _, c := range s.Path.Coordinates {
			line = append(line, point(c.Lat, c.Lng))
		}
		route := geojson.NewFeature(line)
		route.Properties["kind"] = "route"
		route.Properties["vehicle_id"] = int(s.Vehicle.ID)
		route.Properties["session_id"] = s.ID
		route.Properties["source"] = string(s.Path.Source)
		if s.Path.TotalDistanceKm != nil {
			route.Properties["distance_km"] = *s.Path.TotalDistanceKm
		}
		if s.Path.TotalDurationMin != nil {
			route.Properties["duration_min"] = *s.Path.TotalDurationMin
		}
		fc.Append(route)

		for i, stop := range s.Stops {
			f := geojson.NewFeature(point(stop.Coordinates.Lat, stop.Coordinates.Lng))
			f.Properties["kind"] = "stop"
			f.Properties["vehicle_id"] = int(s.Vehicle.ID)
			f.Properties["stop_id"] = int(stop.ID)
			f.Properties["role"] = string(stop.Role)
			f.Properties["name"] = stop.Name
			f.Properties["position"] = i
			f.Properties["geometry_index"] = s.Alignment[i]
			fc.Append(f)
		}

		snap, err := h.Engine.Snapshot(s.Vehicle.ID)
		if err != nil {
			// stopped since Sessions was read
			continue
		}
		v := geojson.NewFeature(point(snap.Position.Lat, snap.Position.Lng))
		v.Properties["kind"] = "vehicle"
		v.Properties["vehicle_id"] = int(s.Vehicle.ID)
		v.Properties["status"] = string(snap.Status)
		v.Properties["load"] = snap.Load
		v.Properties["capacity"] = snap.Capacity
		fc.Append(v)
	}

	w.Header().Set("Content-Type", "application/geo+json")
	data, err := fc.MarshalJSON()
	if err != nil {
		writeFailure(w, r, "render geojson", err)
		return
	}
	_, _ = w.Write(data)
}
