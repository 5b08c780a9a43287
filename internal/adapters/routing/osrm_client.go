package routing

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/obs"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultTimeout = 15 * time.Second

// OSRMClient implements ports.RoutingClient and ports.DistanceMatrixProvider
// against an OSRM HTTP server.
//
// Every Resolve call runs under its own timeout. Anything short of a usable
// route (timeout, HTTP error, non-Ok code, empty geometry) degrades to the
// straight-line fallback path.
//
// The client is safe for concurrent use.
type OSRMClient struct {
	session     *http.Client
	baseURL     string
	profile     string
	userAgent   string
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
}

func NewOSRMClient(baseURL, profile string, timeout time.Duration) (*OSRMClient, error) {
	if baseURL == "" {
		return nil, errors.New("OSRM base url is empty")
	}
	if profile == "" {
		profile = "driving"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &OSRMClient{
		session:     &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		profile:     profile,
		userAgent:   "collection-route-service",
		timeout:     timeout,
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
	}

	return client, nil
}

type routeResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Geometry struct {
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
}

// Resolve returns drivable geometry for coords in order. It never fails.
func (o *OSRMClient) Resolve(ctx context.Context, coords []domain.LatLng) domain.ResolvedPath {
	if len(coords) < 2 {
		return domain.FallbackPath(coords)
	}

	reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	path, err := o.fetchRoute(reqCtx, coords)
	if err != nil {
		log.Warn().
			Err(err).
			Str("req_id", obs.RequestID(ctx)).
			Int("waypoints", len(coords)).
			Msg("routing failed, using straight-line fallback")
		obs.CountRoutingResult(ctx, string(domain.SourceFallback))
		return domain.FallbackPath(coords)
	}

	obs.CountRoutingResult(ctx, string(domain.SourceRouted))
	return path
}

func (o *OSRMClient) fetchRoute(ctx context.Context, coords []domain.LatLng) (_ domain.ResolvedPath, err error) {
	defer obs.Time(ctx, "osrm.Route")(&err)

	endpoint := fmt.Sprintf(
		"%s/route/v1/%s/%s?overview=full&geometries=geojson",
		o.baseURL, o.profile, coordinatePath(coords),
	)

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return domain.ResolvedPath{}, fmt.Errorf("route request failed: %w", err)
	}
	defer resp.Body.Close()

	var rr routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return domain.ResolvedPath{}, fmt.Errorf("decode route response: %w", err)
	}

	if rr.Code != "Ok" {
		return domain.ResolvedPath{}, fmt.Errorf("route response code %q: %s", rr.Code, rr.Message)
	}
	if len(rr.Routes) == 0 {
		return domain.ResolvedPath{}, errors.New("route response has no routes")
	}

	best := rr.Routes[0]
	geometry := make([]domain.LatLng, 0, len(best.Geometry.Coordinates))
	for i, pt := range best.Geometry.Coordinates {
		if len(pt) < 2 {
			return domain.ResolvedPath{}, fmt.Errorf("route geometry point %d has %d values", i, len(pt))
		}
		geometry = append(geometry, domain.LatLng{Lat: pt[1], Lng: pt[0]})
	}
	if len(geometry) < 2 {
		return domain.ResolvedPath{}, fmt.Errorf("route geometry has %d points", len(geometry))
	}

	km := best.Distance / 1000
	minutes := best.Duration / 60

	return domain.ResolvedPath{
		Coordinates:      geometry,
		TotalDistanceKm:  &km,
		TotalDurationMin: &minutes,
		Source:           domain.SourceRouted,
	}, nil
}
