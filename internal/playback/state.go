package playback

import (
	"collection-route-service/internal/domain"
	"errors"
	"fmt"
	"time"
)

// Config tunes the animation. A zero tick interval or step count takes the
// default; a zero collect delay or tolerance is used as is.
type Config struct {
	TickInterval    time.Duration
	StepsPerSegment int
	CollectDelay    time.Duration
	// Stops fire once the vehicle is within this many geometry indices of
	// their aligned index.
	ArrivalTolerance int
	// MaxLoops ends playback after that many completed loops; 0 loops forever.
	MaxLoops int
	// SharedCollection lets only the first vehicle to reach a collection
	// point collect it; later vehicles pass it by.
	SharedCollection bool
}

const (
	DefaultTickInterval     = 80 * time.Millisecond
	DefaultStepsPerSegment  = 25
	DefaultCollectDelay     = 1500 * time.Millisecond
	DefaultArrivalTolerance = 2
)

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.StepsPerSegment <= 0 {
		c.StepsPerSegment = DefaultStepsPerSegment
	}
	if c.CollectDelay < 0 {
		c.CollectDelay = 0
	}
	if c.ArrivalTolerance < 0 {
		c.ArrivalTolerance = DefaultArrivalTolerance
	}
	if c.MaxLoops < 0 {
		c.MaxLoops = 0
	}
	return c
}

// ErrInvalidState reports a vehicle or path that cannot be played back.
var ErrInvalidState = errors.New("invalid playback input")

// VehicleState is the per-vehicle animation state. It is owned by one
// runner goroutine; the engine only reads it under the runner's lock.
type VehicleState struct {
	Vehicle   domain.Vehicle
	Path      domain.ResolvedPath
	Alignment domain.StopAlignment
	Stops     []domain.LogicalStop

	Load                   float64
	GeometryIndex          int
	LastTriggeredStopIndex int
	Loops                  int

	step  int
	steps int
	// claim, when set, decides whether an assigned point is still free.
	claim func(domain.StopID) bool
}

// NewVehicleState validates the inputs and places the vehicle at the start
// of its path with an empty load.
func NewVehicleState(
	vehicle domain.Vehicle,
	stops []domain.LogicalStop,
	path domain.ResolvedPath,
	alignment domain.StopAlignment,
	stepsPerSegment int,
) (*VehicleState, error) {
	if vehicle.Capacity <= 0 {
		return nil, fmt.Errorf("%w: vehicle %d capacity must be positive", ErrInvalidState, vehicle.ID)
	}
	if len(path.Coordinates) == 0 {
		return nil, fmt.Errorf("%w: vehicle %d has an empty path", ErrInvalidState, vehicle.ID)
	}
	if len(alignment) != len(stops) {
		return nil, fmt.Errorf("%w: vehicle %d has %d alignment indices for %d stops", ErrInvalidState, vehicle.ID, len(alignment), len(stops))
	}
	for i, idx := range alignment {
		if idx < 0 || idx >= len(path.Coordinates) {
			return nil, fmt.Errorf("%w: vehicle %d stop %d aligned outside the path", ErrInvalidState, vehicle.ID, i)
		}
		if i > 0 && idx < alignment[i-1] {
			return nil, fmt.Errorf("%w: vehicle %d alignment decreases at stop %d", ErrInvalidState, vehicle.ID, i)
		}
	}
	if stepsPerSegment <= 0 {
		stepsPerSegment = DefaultStepsPerSegment
	}

	return &VehicleState{
		Vehicle:                vehicle,
		Path:                   path,
		Alignment:              alignment,
		Stops:                  stops,
		LastTriggeredStopIndex: -1,
		steps:                  stepsPerSegment,
	}, nil
}

// SegmentProgress is the fraction of the current segment covered, in [0,1).
func (s *VehicleState) SegmentProgress() float64 {
	return float64(s.step) / float64(s.steps)
}

// Position interpolates between the current and next coordinate.
func (s *VehicleState) Position() domain.LatLng {
	coords := s.Path.Coordinates
	if s.GeometryIndex >= len(coords)-1 {
		return coords[len(coords)-1]
	}
	return coords[s.GeometryIndex].Interpolate(coords[s.GeometryIndex+1], s.SegmentProgress())
}

func (s *VehicleState) resetLoop() {
	s.GeometryIndex = 0
	s.step = 0
	s.Load = 0
	s.LastTriggeredStopIndex = -1
	s.Loops++
}

// Advance moves the vehicle one tick. When a new coordinate is reached it
// returns, in route order, the positions of the stops that become due and
// marks them triggered. Stops aligned at or behind the new index are all
// caught up; otherwise at most the next pending stop fires, and only when it
// lies within tolerance ahead. looped reports a restart from the first
// coordinate.
func (s *VehicleState) Advance(tolerance int) (due []int, looped bool) {
	if len(s.Path.Coordinates) < 2 {
		return nil, false
	}
	if s.GeometryIndex >= len(s.Path.Coordinates)-1 {
		s.resetLoop()
		return nil, true
	}

	s.step++
	if s.step < s.steps {
		return nil, false
	}
	s.step = 0
	s.GeometryIndex++

	// alignment never decreases, so the scan ends at the first stop ahead
	p := s.LastTriggeredStopIndex + 1
	for ; p < len(s.Alignment) && s.Alignment[p] <= s.GeometryIndex; p++ {
		due = append(due, p)
		s.LastTriggeredStopIndex = p
	}
	if len(due) == 0 && p < len(s.Alignment) && s.Alignment[p] <= s.GeometryIndex+tolerance {
		due = append(due, p)
		s.LastTriggeredStopIndex = p
	}
	return due, false
}

func (s *VehicleState) Arrive(p int, now time.Time) (events []domain.StopEvent, collect bool) {
	if p == 0 {
		// departure from the first stop
		return nil, false
	}

	stop := s.Stops[p]
	switch stop.Role {
	case domain.RoleDepot:
		s.Load = 0
		return []domain.StopEvent{s.event(stop, domain.EventArrivedDepot, now)}, false
	case domain.RoleDisposal:
		s.Load = 0
		return []domain.StopEvent{s.event(stop, domain.EventDisposal, now)}, false
	case domain.RoleCollection:
		if !s.Vehicle.IsAssigned(stop.ID) {
			return nil, false
		}
		if s.claim != nil && !s.claim(stop.ID) {
			return nil, false
		}
		return []domain.StopEvent{s.event(stop, domain.EventCollectionStarted, now)}, true
	}
	return nil, false
}

// CompleteCollection adds the stop's demand, clamped to [0, capacity].
func (s *VehicleState) CompleteCollection(p int, now time.Time) []domain.StopEvent {
	stop := s.Stops[p]

	load := s.Load + stop.Demand
	exceeded := load > s.Vehicle.Capacity
	s.Load = min(max(load, 0), s.Vehicle.Capacity)

	events := []domain.StopEvent{s.event(stop, domain.EventCollectionCompleted, now)}
	if exceeded {
		events = append(events, s.event(stop, domain.EventCapacityExceeded, now))
	}
	return events
}

func (s *VehicleState) event(stop domain.LogicalStop, t domain.EventType, now time.Time) domain.StopEvent {
	return domain.StopEvent{
		VehicleID: s.Vehicle.ID,
		StopID:    stop.ID,
		Type:      t,
		Timestamp: now,
		LoadAfter: s.Load,
	}
}
