package domain

import (
	"errors"
	"fmt"
)

type StopID int

type StopRole string

const (
	RoleDepot      StopRole = "depot"
	RoleCollection StopRole = "collection"
	RoleDisposal   StopRole = "disposal"
)

var (
	// ErrInvalidRoute marks a caller defect: a route that cannot be resolved.
	ErrInvalidRoute = errors.New("invalid route")
	ErrUnknownStop  = errors.New("unknown stop")
)

func ParseStopRole(s string) (StopRole, error) {
	switch r := StopRole(s); r {
	case RoleDepot, RoleCollection, RoleDisposal:
		return r, nil
	}
	return "", fmt.Errorf("parse stop role %q: unsupported role", s)
}

// A point a vehicle must visit, identified independently of map geometry.
// Demand is only meaningful for collection stops.
type LogicalStop struct {
	ID          StopID
	Role        StopRole
	Name        string
	Coordinates LatLng
	Demand      float64
}

// Ordered stops for one vehicle, depot to depot.
type LogicalRoute struct {
	VehicleID VehicleID
	Stops     []LogicalStop
}

// Validate enforces the depot-to-depot shape with at least two stops.
func (r LogicalRoute) Validate() error {
	if len(r.Stops) < 2 {
		return fmt.Errorf("%w: vehicle %d has %d stops, need at least 2", ErrInvalidRoute, r.VehicleID, len(r.Stops))
	}
	if r.Stops[0].Role != RoleDepot {
		return fmt.Errorf("%w: vehicle %d route must start at a depot, got %s", ErrInvalidRoute, r.VehicleID, r.Stops[0].Role)
	}
	if last := r.Stops[len(r.Stops)-1]; last.Role != RoleDepot {
		return fmt.Errorf("%w: vehicle %d route must end at a depot, got %s", ErrInvalidRoute, r.VehicleID, last.Role)
	}
	return nil
}

func (r LogicalRoute) Coordinates() []LatLng {
	out := make([]LatLng, 0, len(r.Stops))
	for _, s := range r.Stops {
		out = append(out, s.Coordinates)
	}
	return out
}

func (r LogicalRoute) StopIDs() []StopID {
	out := make([]StopID, 0, len(r.Stops))
	for _, s := range r.Stops {
		out = append(out, s.ID)
	}
	return out
}

// A precomputed stop-to-stop path from an earlier distance-matrix run.
// Path includes both endpoints.
type Edge struct {
	From       StopID
	To         StopID
	Path       []StopID
	DistanceKm float64
}
