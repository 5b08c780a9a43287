package routing

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/obs"
	"collection-route-service/internal/ports"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	// OSRM public servers reject larger tables.
	maxTablePoints = 100
	// Speed used to estimate a missing distance from its duration.
	estimateSpeedKmh = 30.0
	// Distance reported when neither metric is available for a pair.
	unreachableKm = 999999.0
)

type tableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// Table retrieves the full distance and duration matrix between coords
// using the OSRM table service.
func (o *OSRMClient) Table(ctx context.Context, coords []domain.LatLng) (_ ports.DistanceMatrix, err error) {
	defer obs.Time(ctx, "osrm.Table")(&err)

	if len(coords) == 0 {
		return ports.DistanceMatrix{}, nil
	}
	if len(coords) > maxTablePoints {
		return nil, fmt.Errorf("table request: %d points exceeds the limit of %d", len(coords), maxTablePoints)
	}

	reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	endpoint := fmt.Sprintf(
		"%s/table/v1/%s/%s?annotations=distance,duration",
		o.baseURL, o.profile, coordinatePath(coords),
	)

	resp, err := o.doWithRetry(reqCtx, func() (*http.Request, error) {
		return o.newRequest(reqCtx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("table request failed: %w", err)
	}
	defer resp.Body.Close()

	var tr tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode table response: %w", err)
	}
	if tr.Code != "Ok" {
		return nil, fmt.Errorf("table response code %q: %s", tr.Code, tr.Message)
	}

	n := len(coords)
	if len(tr.Durations) != n {
		return nil, fmt.Errorf("table response has %d duration rows, want %d", len(tr.Durations), n)
	}

	out := make(ports.DistanceMatrix, n)
	for i := 0; i < n; i++ {
		out[i] = make([]ports.DistanceResult, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			out[i][j] = tableCell(cell(tr.Distances, i, j), cell(tr.Durations, i, j))
		}
	}

	return out, nil
}

func cell(m [][]*float64, i, j int) *float64 {
	if i >= len(m) || j >= len(m[i]) {
		return nil
	}
	return m[i][j]
}

// tableCell converts one OSRM pair (meters, seconds) to km and minutes,
// estimating what is missing.
func tableCell(meters, seconds *float64) ports.DistanceResult {
	switch {
	case meters != nil && seconds != nil:
		return ports.DistanceResult{DistanceKm: *meters / 1000, DurationMin: *seconds / 60}
	case seconds != nil:
		hours := *seconds / 3600
		return ports.DistanceResult{DistanceKm: hours * estimateSpeedKmh, DurationMin: *seconds / 60}
	case meters != nil:
		km := *meters / 1000
		return ports.DistanceResult{DistanceKm: km, DurationMin: km / estimateSpeedKmh * 60}
	default:
		return ports.DistanceResult{DistanceKm: unreachableKm, DurationMin: unreachableKm / estimateSpeedKmh * 60}
	}
}
