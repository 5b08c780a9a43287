package services

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/obs"
	"collection-route-service/internal/ports"
	"context"
	"fmt"
	"time"
)

// Resolution is a resolved path plus the alignment of the route's stops
// onto it.
type Resolution struct {
	Path      domain.ResolvedPath
	Alignment domain.StopAlignment
	CacheHit  bool
}

// RouteResult carries one route's outcome from ResolveMany.
type RouteResult struct {
	Resolution
	Err error
}

// RouteResolver turns logical routes into drawable geometry. It consults the
// geometry cache in both directions before calling the routing client, and
// throttles bulk resolution through RunBatched.
type RouteResolver struct {
	cache       ports.GeometryCache
	client      ports.RoutingClient
	concurrency int
	pacing      time.Duration
}

func NewRouteResolver(
	cache ports.GeometryCache,
	client ports.RoutingClient,
	concurrency int,
	pacing time.Duration,
) *RouteResolver {
	if concurrency < 1 {
		concurrency = DefaultBatchConcurrency
	}
	if pacing < 0 {
		pacing = DefaultBatchPacing
	}
	return &RouteResolver{
		cache:       cache,
		client:      client,
		concurrency: concurrency,
		pacing:      pacing,
	}
}

// lookup checks the canonical key, then the reversed key.
func (r *RouteResolver) lookup(ctx context.Context, coords []domain.LatLng) (domain.ResolvedPath, bool) {
	if p, ok := r.cache.Get(domain.RouteKey(coords)); ok {
		obs.CountCacheLookup(ctx, "hit")
		return p, true
	}
	if p, ok := r.cache.Get(domain.RouteKey(domain.ReverseCoords(coords))); ok {
		obs.CountCacheLookup(ctx, "reverse_hit")
		return p.Reversed(), true
	}
	obs.CountCacheLookup(ctx, "miss")
	return domain.ResolvedPath{}, false
}

// Only routed results are cached; a fallback reflects a transient provider
// failure and is retried on the next resolution.
func (r *RouteResolver) store(coords []domain.LatLng, path domain.ResolvedPath) {
	if path.Source != domain.SourceRouted {
		return
	}
	r.cache.Put(domain.RouteKey(coords), path)
}

// Resolve resolves a single route. Invalid routes are rejected with
// domain.ErrInvalidRoute; provider failures surface as a fallback path.
func (r *RouteResolver) Resolve(ctx context.Context, route domain.LogicalRoute) (_ Resolution, err error) {
	defer obs.Time(ctx, "resolver.Resolve")(&err)

	if err := route.Validate(); err != nil {
		return Resolution{}, fmt.Errorf("resolve route: %w", err)
	}

	coords := route.Coordinates()
	if p, ok := r.lookup(ctx, coords); ok {
		return Resolution{Path: p, Alignment: Align(p, route.Stops), CacheHit: true}, nil
	}

	p := r.client.Resolve(ctx, coords)
	r.store(coords, p)

	return Resolution{Path: p, Alignment: Align(p, route.Stops)}, nil
}

type pendingRoute struct {
	coords  []domain.LatLng
	members []int
}

// ResolveMany resolves routes for many vehicles at once. Cache misses go
// through RunBatched; identical coordinate lists are requested once and a
// route that is the exact reverse of another waits for it and is then served
// from the cache. Results keep input order and failures stay per route.
func (r *RouteResolver) ResolveMany(ctx context.Context, routes []domain.LogicalRoute) (_ []RouteResult, err error) {
	defer obs.Time(ctx, "resolver.ResolveMany")(&err)

	results := make([]RouteResult, len(routes))

	var (
		order    []*pendingRoute
		byKey    = make(map[string]*pendingRoute)
		deferred []int
	)

	for i, route := range routes {
		if err := route.Validate(); err != nil {
			results[i].Err = fmt.Errorf("resolve route: %w", err)
			continue
		}

		coords := route.Coordinates()
		if p, ok := r.lookup(ctx, coords); ok {
			results[i].Resolution = Resolution{Path: p, Alignment: Align(p, route.Stops), CacheHit: true}
			continue
		}

		key := domain.RouteKey(coords)
		if pr, ok := byKey[key]; ok {
			pr.members = append(pr.members, i)
			continue
		}
		if _, ok := byKey[domain.RouteKey(domain.ReverseCoords(coords))]; ok {
			deferred = append(deferred, i)
			continue
		}

		pr := &pendingRoute{coords: coords, members: []int{i}}
		byKey[key] = pr
		order = append(order, pr)
	}

	tasks := make([]func(context.Context) domain.ResolvedPath, len(order))
	for j, pr := range order {
		tasks[j] = func(ctx context.Context) domain.ResolvedPath {
			return r.client.Resolve(ctx, pr.coords)
		}
	}

	paths, batchErr := RunBatched(ctx, tasks, r.concurrency, r.pacing)

	for j, pr := range order {
		p := paths[j]
		if len(p.Coordinates) == 0 {
			for _, i := range pr.members {
				results[i].Err = fmt.Errorf("resolve route for vehicle %d: not scheduled: %w", routes[i].VehicleID, ctxErr(ctx, batchErr))
			}
			continue
		}

		r.store(pr.coords, p)
		for _, i := range pr.members {
			results[i].Resolution = Resolution{Path: p, Alignment: Align(p, routes[i].Stops)}
		}
	}

	for _, i := range deferred {
		if err := ctx.Err(); err != nil {
			results[i].Err = fmt.Errorf("resolve route for vehicle %d: not scheduled: %w", routes[i].VehicleID, err)
			continue
		}
		res, err := r.Resolve(ctx, routes[i])
		results[i] = RouteResult{Resolution: res, Err: err}
	}

	return results, batchErr
}

func ctxErr(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}

// Align maps each stop onto a geometry index.
//
// A fallback path with one coordinate per stop aligns one to one. Otherwise
// the first stop is pinned to the start of the path and the last to its
// end, and every stop in between takes the nearest coordinate at or after
// the previous stop's index, so indices never decrease.
func Align(path domain.ResolvedPath, stops []domain.LogicalStop) domain.StopAlignment {
	out := make(domain.StopAlignment, len(stops))
	n := len(path.Coordinates)
	if n == 0 || len(stops) == 0 {
		return out
	}

	if path.Source == domain.SourceFallback && n == len(stops) {
		for i := range out {
			out[i] = i
		}
		return out
	}

	prev := 0
	for i, s := range stops {
		switch i {
		case 0:
			out[i] = 0
		case len(stops) - 1:
			out[i] = n - 1
		default:
			out[i] = domain.NearestIndex(path.Coordinates, s.Coordinates, prev)
		}
		prev = out[i]
	}
	return out
}
