package routing

import (
	"collection-route-service/internal/domain"
	"context"
	"sync"
)

// StaticRouter serves precomputed paths keyed by domain.RouteKey and falls
// back to straight lines for anything else. With no routes it is the
// offline router.
type StaticRouter struct {
	mu     sync.Mutex
	routes map[string]domain.ResolvedPath
	calls  int
}

func NewStaticRouter(routes map[string]domain.ResolvedPath) *StaticRouter {
	m := make(map[string]domain.ResolvedPath, len(routes))
	for k, v := range routes {
		m[k] = v
	}
	return &StaticRouter{routes: m}
}

func (s *StaticRouter) Resolve(ctx context.Context, coords []domain.LatLng) domain.ResolvedPath {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if p, ok := s.routes[domain.RouteKey(coords)]; ok {
		return p
	}
	return domain.FallbackPath(coords)
}

// Calls reports how many times Resolve was invoked.
func (s *StaticRouter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
