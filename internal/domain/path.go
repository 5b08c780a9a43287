package domain

import (
	"math"
	"time"
)

type PathSource string

const (
	SourceRouted   PathSource = "routed"
	SourceFallback PathSource = "fallback"
)

// Concrete geometry for an ordered set of coordinates.
// Nil distance and duration mean the metrics are not available, never zero.
type ResolvedPath struct {
	Coordinates      []LatLng   `json:"coordinates"`
	TotalDistanceKm  *float64   `json:"totalDistanceKm"`
	TotalDurationMin *float64   `json:"totalDurationMin"`
	Source           PathSource `json:"source"`
}

// FallbackPath is the straight-line result used when routing fails.
func FallbackPath(coords []LatLng) ResolvedPath {
	cp := make([]LatLng, len(coords))
	copy(cp, coords)
	return ResolvedPath{Coordinates: cp, Source: SourceFallback}
}

// Reversed flips the geometry and keeps the metrics.
func (p ResolvedPath) Reversed() ResolvedPath {
	return ResolvedPath{
		Coordinates:      ReverseCoords(p.Coordinates),
		TotalDistanceKm:  p.TotalDistanceKm,
		TotalDurationMin: p.TotalDurationMin,
		Source:           p.Source,
	}
}

// One geometry index per logical stop, non-decreasing in stop order.
type StopAlignment []int

// NearestIndex returns the index in coords, at or after from, closest to
// target. The earliest index wins ties.
func NearestIndex(coords []LatLng, target LatLng, from int) int {
	if from < 0 {
		from = 0
	}
	if from >= len(coords) {
		return len(coords) - 1
	}

	best := from
	bestDist := math.Inf(1)
	for i := from; i < len(coords); i++ {
		if d := coords[i].distanceTo(target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

const CacheVersion = "1.0"

// Persisted form of the geometry cache.
type CacheSnapshot struct {
	Version   string                  `json:"version"`
	Timestamp time.Time               `json:"timestamp"`
	Routes    map[string]ResolvedPath `json:"routes"`
}
