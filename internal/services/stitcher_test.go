package services

import (
	"collection-route-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	depot domain.StopID = 0
	stopA domain.StopID = 1
	stopB domain.StopID = 2
	stopC domain.StopID = 3
	stopX domain.StopID = 9
)

func TestStitchDegradationOrder(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		lib := NewEdgeLibrary(depot, []domain.Edge{{From: stopA, To: stopB, Path: []domain.StopID{stopA, stopX, stopB}}})
		assert.Equal(t, []domain.StopID{stopA, stopX, stopB}, Stitch([]domain.StopID{stopA, stopB}, lib))
	})

	t.Run("reversed", func(t *testing.T) {
		lib := NewEdgeLibrary(depot, []domain.Edge{{From: stopB, To: stopA, Path: []domain.StopID{stopB, stopX, stopA}}})
		assert.Equal(t, []domain.StopID{stopA, stopX, stopB}, Stitch([]domain.StopID{stopA, stopB}, lib))
	})

	t.Run("via depot", func(t *testing.T) {
		lib := NewEdgeLibrary(depot, []domain.Edge{
			{From: stopA, To: depot, Path: []domain.StopID{stopA, stopX, depot}},
			{From: depot, To: stopB, Path: []domain.StopID{depot, stopB}},
		})
		assert.Equal(t, []domain.StopID{stopA, stopX, depot, stopB}, Stitch([]domain.StopID{stopA, stopB}, lib))
	})

	t.Run("bare pair", func(t *testing.T) {
		lib := NewEdgeLibrary(depot, nil)
		assert.Equal(t, []domain.StopID{stopA, stopB}, Stitch([]domain.StopID{stopA, stopB}, lib))
	})
}

func TestStitchPrefersDirectOverReverse(t *testing.T) {
	lib := NewEdgeLibrary(depot, []domain.Edge{
		{From: stopA, To: stopB, Path: []domain.StopID{stopA, stopB}},
		{From: stopB, To: stopA, Path: []domain.StopID{stopB, stopX, stopA}},
	})
	assert.Equal(t, []domain.StopID{stopA, stopB}, lib.Segment(stopA, stopB))
	assert.Equal(t, []domain.StopID{stopB, stopX, stopA}, lib.Segment(stopB, stopA))
}

func TestStitchJoinsSegmentsWithoutDuplicates(t *testing.T) {
	lib := NewEdgeLibrary(depot, []domain.Edge{
		{From: depot, To: stopA, Path: []domain.StopID{depot, stopA}},
		{From: stopA, To: stopB, Path: []domain.StopID{stopA, stopX, stopB}},
		{From: stopC, To: stopB},
	})

	got := BuildTrajectory(depot, []domain.StopID{stopA, stopB, stopC}, lib)
	// C -> depot has no edge at all and degrades to the bare pair
	assert.Equal(t, []domain.StopID{depot, stopA, stopX, stopB, stopC, depot}, got)
}

func TestStitchCollapsesRepeatedStops(t *testing.T) {
	lib := NewEdgeLibrary(depot, nil)
	assert.Equal(t, []domain.StopID{depot, stopA, depot}, Stitch([]domain.StopID{depot, stopA, stopA, depot}, lib))
	assert.Nil(t, Stitch(nil, lib))
	assert.Equal(t, []domain.StopID{stopA}, Stitch([]domain.StopID{stopA}, lib))
}

func TestEdgeLibraryNormalizesPaths(t *testing.T) {
	lib := NewEdgeLibrary(depot, []domain.Edge{
		{From: stopA, To: stopB, Path: []domain.StopID{stopX}},
	})
	assert.Equal(t, []domain.StopID{stopA, stopX, stopB}, lib.Segment(stopA, stopB))
	assert.Equal(t, 1, lib.Len())
	assert.Equal(t, depot, lib.Depot())
}

func TestStopIndexRoute(t *testing.T) {
	ix := NewStopIndex([]domain.LogicalStop{
		{ID: 5, Role: domain.RoleDepot},
		{ID: depot, Role: domain.RoleDepot},
		{ID: stopA, Role: domain.RoleCollection, Demand: 100},
	})

	d, ok := ix.Depot()
	require.True(t, ok)
	assert.Equal(t, depot, d)

	route, err := ix.Route(3, []domain.StopID{depot, stopA, depot})
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleID(3), route.VehicleID)
	assert.Equal(t, []domain.StopID{depot, stopA, depot}, route.StopIDs())

	_, err = ix.Route(3, []domain.StopID{depot, stopX, depot})
	assert.ErrorIs(t, err, domain.ErrUnknownStop)

	_, err = ix.Route(3, []domain.StopID{depot})
	assert.ErrorIs(t, err, domain.ErrInvalidRoute)

	_, ok = NewStopIndex(nil).Depot()
	assert.False(t, ok)
}
