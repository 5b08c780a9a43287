package dto

type RouteRequest struct {
	VehicleID int   `json:"vehicle_id"`
	Stops     []int `json:"stops"`
}

// With Stitch set, Stops lists only the zones to visit; the depot tour is
// expanded through the edge library.
type ResolveRequest struct {
	Routes []RouteRequest `json:"routes"`
	Stitch bool           `json:"stitch"`
}

type RouteResponse struct {
	VehicleID   int         `json:"vehicle_id"`
	Stops       []int       `json:"stops"`
	Coordinates [][]float64 `json:"coordinates"`
	Alignment   []int       `json:"alignment"`
	Source      string      `json:"source"`
	DistanceKm  *float64    `json:"distance_km"`
	DurationMin *float64    `json:"duration_min"`
	CacheHit    bool        `json:"cache_hit"`
	Error       string      `json:"error,omitempty"`
}

type ResolveResponse struct {
	Routes []RouteResponse `json:"routes"`
}

type MatrixRequest struct {
	Stops []int `json:"stops"`
}

type MatrixResponse struct {
	Stops        []int       `json:"stops"`
	DistancesKm  [][]float64 `json:"distances_km"`
	DurationsMin [][]float64 `json:"durations_min"`
}
