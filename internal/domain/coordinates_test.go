package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteKeyFormat(t *testing.T) {
	coords := []LatLng{{Lat: 33.5731, Lng: -7.5898}, {Lat: 33.6, Lng: -7.5}}

	assert.Equal(t, "33.5731,-7.5898→33.6,-7.5", RouteKey(coords))
	assert.Equal(t, "33.6,-7.5→33.5731,-7.5898", RouteKey(ReverseCoords(coords)))
	assert.Equal(t, "", RouteKey(nil))
}

func TestReverseCoordsDoesNotAlias(t *testing.T) {
	coords := []LatLng{{Lat: 1}, {Lat: 2}, {Lat: 3}}
	rev := ReverseCoords(coords)

	require.Equal(t, []LatLng{{Lat: 3}, {Lat: 2}, {Lat: 1}}, rev)
	rev[0].Lat = 99
	assert.Equal(t, 1.0, coords[0].Lat)
}

func TestPlaneToLatLng(t *testing.T) {
	origin := PlaneToLatLng(0, 0)
	assert.InDelta(t, 33.5731, origin.Lat, 1e-9)
	assert.InDelta(t, -7.5898, origin.Lng, 1e-9)

	north := PlaneToLatLng(0, 111)
	assert.InDelta(t, 34.5731, north.Lat, 1e-9)

	east := PlaneToLatLng(10, 0)
	assert.Greater(t, east.Lng, origin.Lng)
	assert.InDelta(t, origin.Lat, east.Lat, 1e-9)
}

func TestInterpolate(t *testing.T) {
	a := LatLng{Lat: 0, Lng: 0}
	b := LatLng{Lat: 2, Lng: 4}

	assert.Equal(t, a, a.Interpolate(b, 0))
	assert.Equal(t, b, a.Interpolate(b, 1))
	assert.Equal(t, LatLng{Lat: 1, Lng: 2}, a.Interpolate(b, 0.5))
}

func TestNearestIndexScansForwardOnly(t *testing.T) {
	coords := []LatLng{{Lat: 0}, {Lat: 1}, {Lat: 2}, {Lat: 1}, {Lat: 0}}

	assert.Equal(t, 0, NearestIndex(coords, LatLng{Lat: 0}, 0))
	// the closer match at index 0 is behind the start index
	assert.Equal(t, 4, NearestIndex(coords, LatLng{Lat: 0}, 1))
	// ties keep the earliest candidate
	assert.Equal(t, 1, NearestIndex(coords, LatLng{Lat: 1}, 1))
	assert.Equal(t, 4, NearestIndex(coords, LatLng{Lat: 5}, 10))
}
