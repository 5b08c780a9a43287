package playback

import (
	"collection-route-service/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	depot    = domain.LogicalStop{ID: 0, Role: domain.RoleDepot, Coordinates: domain.LatLng{Lat: 0, Lng: 0}}
	pointA   = domain.LogicalStop{ID: 1, Role: domain.RoleCollection, Coordinates: domain.LatLng{Lat: 0, Lng: 5}, Demand: 300}
	pointB   = domain.LogicalStop{ID: 2, Role: domain.RoleCollection, Coordinates: domain.LatLng{Lat: 2, Lng: 5}, Demand: 150}
	disposal = domain.LogicalStop{ID: 3, Role: domain.RoleDisposal, Coordinates: domain.LatLng{Lat: 4, Lng: 5}}

	loopPath = domain.ResolvedPath{
		Source: domain.SourceRouted,
		Coordinates: []domain.LatLng{
			{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 0, Lng: 2}, {Lat: 0, Lng: 3}, {Lat: 0, Lng: 4},
			{Lat: 0, Lng: 5}, {Lat: 1, Lng: 5}, {Lat: 2, Lng: 5}, {Lat: 3, Lng: 5}, {Lat: 4, Lng: 5},
			{Lat: 3, Lng: 3}, {Lat: 2, Lng: 2}, {Lat: 1, Lng: 1}, {Lat: 0, Lng: 0},
		},
	}
	loopStops     = []domain.LogicalStop{depot, pointA, pointB, disposal, depot}
	loopAlignment = domain.StopAlignment{0, 5, 7, 9, 13}
)

func newState(t *testing.T, vehicle domain.Vehicle, steps int) *VehicleState {
	t.Helper()
	s, err := NewVehicleState(vehicle, loopStops, loopPath, loopAlignment, steps)
	require.NoError(t, err)
	return s
}

// drive runs n ticks, completing collections immediately.
func drive(s *VehicleState, tolerance, n int) (events []domain.StopEvent, loops int) {
	now := time.Unix(0, 0)
	for range n {
		due, looped := s.Advance(tolerance)
		if looped {
			loops++
		}
		for _, p := range due {
			evs, collect := s.Arrive(p, now)
			events = append(events, evs...)
			if collect {
				events = append(events, s.CompleteCollection(p, now)...)
			}
		}
	}
	return events, loops
}

type eventKey struct {
	Stop domain.StopID
	Type domain.EventType
	Load float64
}

func keys(events []domain.StopEvent) []eventKey {
	out := make([]eventKey, len(events))
	for i, e := range events {
		out[i] = eventKey{e.StopID, e.Type, e.LoadAfter}
	}
	return out
}

func TestFullLoopEmitsEventsInRouteOrder(t *testing.T) {
	s := newState(t, domain.NewVehicle(1, 1000, []domain.StopID{1}), 1)

	events, loops := drive(s, 0, 13)
	assert.Zero(t, loops)
	assert.Equal(t, []eventKey{
		{1, domain.EventCollectionStarted, 0},
		{1, domain.EventCollectionCompleted, 300},
		{3, domain.EventDisposal, 0},
		{0, domain.EventArrivedDepot, 0},
	}, keys(events))
	assert.Equal(t, 4, s.LastTriggeredStopIndex)
	assert.Equal(t, 13, s.GeometryIndex)

	for _, e := range events {
		assert.Equal(t, domain.VehicleID(1), e.VehicleID)
	}
}

func TestLoopResetClearsState(t *testing.T) {
	s := newState(t, domain.NewVehicle(1, 1000, nil), 1)

	_, loops := drive(s, 0, 7)
	assert.Zero(t, loops)
	assert.Equal(t, 450.0, s.Load)

	_, loops = drive(s, 0, 7)
	assert.Equal(t, 1, loops)
	assert.Equal(t, 0, s.GeometryIndex)
	assert.Zero(t, s.Load)
	assert.Equal(t, -1, s.LastTriggeredStopIndex)
	assert.Equal(t, 1, s.Loops)

	// the second loop fires the same stops again
	events, _ := drive(s, 0, 13)
	assert.Len(t, events, 6)
}

func TestUnassignedCollectionIsPassedThrough(t *testing.T) {
	s := newState(t, domain.NewVehicle(1, 1000, []domain.StopID{2}), 1)

	events, _ := drive(s, 0, 8)
	assert.Equal(t, []eventKey{
		{2, domain.EventCollectionStarted, 0},
		{2, domain.EventCollectionCompleted, 150},
	}, keys(events))
	assert.Equal(t, 2, s.LastTriggeredStopIndex)
}

func TestCapacityIsClamped(t *testing.T) {
	s := newState(t, domain.NewVehicle(1, 400, nil), 1)

	events, _ := drive(s, 0, 8)
	assert.Equal(t, []eventKey{
		{1, domain.EventCollectionStarted, 0},
		{1, domain.EventCollectionCompleted, 300},
		{2, domain.EventCollectionStarted, 300},
		{2, domain.EventCollectionCompleted, 400},
		{2, domain.EventCapacityExceeded, 400},
	}, keys(events))
	assert.Equal(t, 400.0, s.Load)
}

func TestToleranceFiresOneStopEarly(t *testing.T) {
	s := newState(t, domain.NewVehicle(1, 1000, []domain.StopID{1}), 1)

	// A is aligned at 5 and comes into reach at index 3
	events, _ := drive(s, 2, 2)
	assert.Empty(t, events)
	events, _ = drive(s, 2, 1)
	assert.Equal(t, []eventKey{
		{1, domain.EventCollectionStarted, 0},
		{1, domain.EventCollectionCompleted, 300},
	}, keys(events))
	assert.Equal(t, 1, s.LastTriggeredStopIndex)

	// B at 7 waits for index 5
	drive(s, 2, 1)
	assert.Equal(t, 1, s.LastTriggeredStopIndex)
	drive(s, 2, 1)
	assert.Equal(t, 2, s.LastTriggeredStopIndex)

	// the disposal at 9 is reached at index 7
	events, _ = drive(s, 2, 1)
	assert.Empty(t, events)
	events, _ = drive(s, 2, 1)
	assert.Equal(t, []eventKey{{3, domain.EventDisposal, 0}}, keys(events))
	assert.Equal(t, 7, s.GeometryIndex)
}

func TestPassedStopsAreCaughtUp(t *testing.T) {
	s, err := NewVehicleState(
		domain.NewVehicle(1, 1000, []domain.StopID{1, 2}),
		loopStops, loopPath, domain.StopAlignment{0, 5, 5, 5, 13}, 1,
	)
	require.NoError(t, err)

	events, _ := drive(s, 1, 4)
	assert.Equal(t, []eventKey{
		{1, domain.EventCollectionStarted, 0},
		{1, domain.EventCollectionCompleted, 300},
	}, keys(events))

	events, _ = drive(s, 1, 1)
	assert.Equal(t, []eventKey{
		{2, domain.EventCollectionStarted, 300},
		{2, domain.EventCollectionCompleted, 450},
		{3, domain.EventDisposal, 0},
	}, keys(events))
	assert.Equal(t, 3, s.LastTriggeredStopIndex)
}

func TestFallbackPathFiresOneStopPerWaypoint(t *testing.T) {
	stops := []domain.LogicalStop{depot, pointA, disposal, depot}
	coords := make([]domain.LatLng, len(stops))
	for i, st := range stops {
		coords[i] = st.Coordinates
	}
	path := domain.FallbackPath(coords)
	s, err := NewVehicleState(domain.NewVehicle(1, 1000, []domain.StopID{1}), stops, path, domain.StopAlignment{0, 1, 2, 3}, 1)
	require.NoError(t, err)

	tol := DefaultArrivalTolerance
	events, _ := drive(s, tol, 1)
	assert.Equal(t, []eventKey{
		{1, domain.EventCollectionStarted, 0},
		{1, domain.EventCollectionCompleted, 300},
	}, keys(events))
	assert.Equal(t, 1, s.LastTriggeredStopIndex)

	events, _ = drive(s, tol, 1)
	assert.Equal(t, []eventKey{{3, domain.EventDisposal, 0}}, keys(events))

	events, _ = drive(s, tol, 1)
	assert.Equal(t, []eventKey{{0, domain.EventArrivedDepot, 0}}, keys(events))

	_, loops := drive(s, tol, 1)
	assert.Equal(t, 1, loops)
}

func TestSharedLedgerLetsOneVehicleCollect(t *testing.T) {
	l := newLedger()
	first := newState(t, domain.NewVehicle(1, 1000, nil), 1)
	first.claim = func(stop domain.StopID) bool { return l.claim(stop, 1) }
	second := newState(t, domain.NewVehicle(2, 1000, nil), 1)
	second.claim = func(stop domain.StopID) bool { return l.claim(stop, 2) }

	events, _ := drive(first, 0, 8)
	assert.Equal(t, []eventKey{
		{1, domain.EventCollectionStarted, 0},
		{1, domain.EventCollectionCompleted, 300},
		{2, domain.EventCollectionStarted, 300},
		{2, domain.EventCollectionCompleted, 450},
	}, keys(events))

	events, _ = drive(second, 0, 13)
	assert.Equal(t, []eventKey{
		{3, domain.EventDisposal, 0},
		{0, domain.EventArrivedDepot, 0},
	}, keys(events))
	assert.Equal(t, map[domain.StopID]domain.VehicleID{1: 1, 2: 1}, l.snapshot())

	// the owner collects again on its next loop
	events, loops := drive(first, 0, 14)
	assert.Equal(t, 1, loops)
	assert.Contains(t, keys(events), eventKey{1, domain.EventCollectionCompleted, 300})

	l.release(1)
	assert.Empty(t, l.snapshot())
}

func TestStopsSharingAnIndexFireInOrder(t *testing.T) {
	stops := []domain.LogicalStop{depot, pointA, disposal, depot}
	s, err := NewVehicleState(domain.NewVehicle(1, 1000, nil), stops, loopPath, domain.StopAlignment{0, 5, 5, 13}, 1)
	require.NoError(t, err)

	events, _ := drive(s, 0, 5)
	assert.Equal(t, []eventKey{
		{1, domain.EventCollectionStarted, 0},
		{1, domain.EventCollectionCompleted, 300},
		{3, domain.EventDisposal, 0},
	}, keys(events))
}

func TestSegmentProgressInterpolates(t *testing.T) {
	s := newState(t, domain.NewVehicle(1, 1000, nil), 4)

	drive(s, 0, 3)
	assert.Equal(t, 0, s.GeometryIndex)
	assert.InDelta(t, 0.75, s.SegmentProgress(), 1e-9)
	assert.InDelta(t, 0.75, s.Position().Lng, 1e-9)

	drive(s, 0, 1)
	assert.Equal(t, 1, s.GeometryIndex)
	assert.Zero(t, s.SegmentProgress())
	assert.Equal(t, domain.LatLng{Lat: 0, Lng: 1}, s.Position())
}

func TestSinglePointPathStaysPut(t *testing.T) {
	path := domain.ResolvedPath{Coordinates: []domain.LatLng{{Lat: 1, Lng: 1}}, Source: domain.SourceFallback}
	s, err := NewVehicleState(domain.NewVehicle(1, 10, nil), []domain.LogicalStop{depot}, path, domain.StopAlignment{0}, 1)
	require.NoError(t, err)

	events, loops := drive(s, 0, 5)
	assert.Empty(t, events)
	assert.Zero(t, loops)
	assert.Equal(t, domain.LatLng{Lat: 1, Lng: 1}, s.Position())
}

func TestNewVehicleStateRejectsBadInput(t *testing.T) {
	vehicle := domain.NewVehicle(1, 1000, nil)

	tests := []struct {
		name      string
		vehicle   domain.Vehicle
		path      domain.ResolvedPath
		alignment domain.StopAlignment
	}{
		{"zero capacity", domain.NewVehicle(1, 0, nil), loopPath, loopAlignment},
		{"empty path", vehicle, domain.ResolvedPath{}, loopAlignment},
		{"short alignment", vehicle, loopPath, domain.StopAlignment{0, 5, 13}},
		{"out of range", vehicle, loopPath, domain.StopAlignment{0, 5, 7, 9, 14}},
		{"decreasing", vehicle, loopPath, domain.StopAlignment{0, 7, 5, 9, 13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVehicleState(tt.vehicle, loopStops, tt.path, tt.alignment, 1)
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}
