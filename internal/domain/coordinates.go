package domain

import (
	"math"
	"strconv"
	"strings"
)

// Geographic coordinates in WGS84 degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Return coordinates as [lng, lat] for external API compatibility.
func (c LatLng) CoordsToList() []float64 { return []float64{c.Lng, c.Lat} }

// String formats the point the way cache keys expect it: "lat,lng".
func (c LatLng) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// planar distance in degree space, good enough for nearest-point search
// over a single city.
func (c LatLng) distanceTo(o LatLng) float64 {
	return math.Hypot(c.Lat-o.Lat, c.Lng-o.Lng)
}

// Interpolate returns the point at fraction t of the segment c -> o.
func (c LatLng) Interpolate(o LatLng, t float64) LatLng {
	return LatLng{
		Lat: c.Lat + (o.Lat-c.Lat)*t,
		Lng: c.Lng + (o.Lng-c.Lng)*t,
	}
}

const keySeparator = "→"

// RouteKey builds the canonical cache key for an ordered coordinate list.
func RouteKey(coords []LatLng) string {
	parts := make([]string, 0, len(coords))
	for _, c := range coords {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, keySeparator)
}

// ReverseCoords returns a reversed copy.
func ReverseCoords(coords []LatLng) []LatLng {
	out := make([]LatLng, len(coords))
	for i, c := range coords {
		out[len(coords)-1-i] = c
	}
	return out
}

// Reference point of the optimizer's planar coordinate system.
const (
	planeOriginLat = 33.5731
	planeOriginLng = -7.5898
	kmPerDegree    = 111.0
)

// PlaneToLatLng converts optimizer plane coordinates (km east, km north of the
// reference point) into latitude and longitude.
func PlaneToLatLng(x, y float64) LatLng {
	lat := planeOriginLat + y/kmPerDegree
	lng := planeOriginLng + x/(kmPerDegree*math.Cos(planeOriginLat*math.Pi/180))
	return LatLng{Lat: lat, Lng: lng}
}
