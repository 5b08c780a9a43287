package dto

import "time"

type VehicleRequest struct {
	VehicleID int     `json:"vehicle_id"`
	Capacity  float64 `json:"capacity"`
	Stops     []int   `json:"stops"`
	// Empty means every collection stop on the route is collected.
	Assigned []int `json:"assigned"`
}

type PlaybackRequest struct {
	Vehicles []VehicleRequest `json:"vehicles"`
	Stitch   bool             `json:"stitch"`
}

type SessionResponse struct {
	SessionID string     `json:"session_id,omitempty"`
	VehicleID int        `json:"vehicle_id"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Source    string     `json:"source,omitempty"`
	Points    int        `json:"points"`
	Stops     []int      `json:"stops"`
	Error     string     `json:"error,omitempty"`
}

type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}
