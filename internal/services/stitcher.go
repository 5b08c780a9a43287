package services

import (
	"collection-route-service/internal/domain"
	"fmt"
	"slices"
)

type edgeKey struct {
	from, to domain.StopID
}

// EdgeLibrary indexes precomputed stop-to-stop paths by their endpoints.
type EdgeLibrary struct {
	depot domain.StopID
	paths map[edgeKey][]domain.StopID
}

// NewEdgeLibrary builds a library around depot. Later edges with the same
// endpoints replace earlier ones. Paths are normalized to start at From and
// end at To.
func NewEdgeLibrary(depot domain.StopID, edges []domain.Edge) *EdgeLibrary {
	lib := &EdgeLibrary{
		depot: depot,
		paths: make(map[edgeKey][]domain.StopID, len(edges)),
	}
	for _, e := range edges {
		path := slices.Clone(e.Path)
		if len(path) == 0 || path[0] != e.From {
			path = append([]domain.StopID{e.From}, path...)
		}
		if path[len(path)-1] != e.To {
			path = append(path, e.To)
		}
		lib.paths[edgeKey{e.From, e.To}] = path
	}
	return lib
}

func (l *EdgeLibrary) Depot() domain.StopID { return l.depot }

func (l *EdgeLibrary) Len() int { return len(l.paths) }

func (l *EdgeLibrary) direct(a, b domain.StopID) ([]domain.StopID, bool) {
	p, ok := l.paths[edgeKey{a, b}]
	return p, ok
}

// Segment returns the stop path from a to b, trying in order the direct
// edge, the reversed edge, a detour through the depot and finally the bare
// pair. The result always starts with a and ends with b.
func (l *EdgeLibrary) Segment(a, b domain.StopID) []domain.StopID {
	if a == b {
		return []domain.StopID{a}
	}

	if p, ok := l.direct(a, b); ok {
		return slices.Clone(p)
	}

	if p, ok := l.direct(b, a); ok {
		rev := slices.Clone(p)
		slices.Reverse(rev)
		return rev
	}

	if a != l.depot && b != l.depot {
		toDepot, ok1 := l.direct(a, l.depot)
		fromDepot, ok2 := l.direct(l.depot, b)
		if ok1 && ok2 {
			out := slices.Clone(toDepot)
			return append(out, fromDepot[1:]...)
		}
	}

	return []domain.StopID{a, b}
}

// Stitch expands an ordered stop list into the full stop path using the
// edge library. It never fails; sparse libraries only yield coarser paths.
func Stitch(ordered []domain.StopID, lib *EdgeLibrary) []domain.StopID {
	if len(ordered) == 0 {
		return nil
	}

	out := []domain.StopID{ordered[0]}
	for i := 1; i < len(ordered); i++ {
		seg := lib.Segment(ordered[i-1], ordered[i])
		out = append(out, seg[1:]...)
	}
	return out
}

// BuildTrajectory stitches a depot-to-depot tour through the given zones.
func BuildTrajectory(depot domain.StopID, zones []domain.StopID, lib *EdgeLibrary) []domain.StopID {
	ordered := make([]domain.StopID, 0, len(zones)+2)
	ordered = append(ordered, depot)
	ordered = append(ordered, zones...)
	ordered = append(ordered, depot)
	return Stitch(ordered, lib)
}

// StopIndex resolves stop identifiers to stops.
type StopIndex map[domain.StopID]domain.LogicalStop

func NewStopIndex(stops []domain.LogicalStop) StopIndex {
	ix := make(StopIndex, len(stops))
	for _, s := range stops {
		ix[s.ID] = s
	}
	return ix
}

// Depot returns the depot with the lowest id.
func (ix StopIndex) Depot() (domain.StopID, bool) {
	found := false
	var best domain.StopID
	for id, s := range ix {
		if s.Role != domain.RoleDepot {
			continue
		}
		if !found || id < best {
			best, found = id, true
		}
	}
	return best, found
}

// Route builds a validated LogicalRoute for vehicle from stop ids.
func (ix StopIndex) Route(vehicle domain.VehicleID, ids []domain.StopID) (domain.LogicalRoute, error) {
	stops := make([]domain.LogicalStop, 0, len(ids))
	for _, id := range ids {
		s, ok := ix[id]
		if !ok {
			return domain.LogicalRoute{}, fmt.Errorf("build route for vehicle %d: %w %d", vehicle, domain.ErrUnknownStop, id)
		}
		stops = append(stops, s)
	}

	route := domain.LogicalRoute{VehicleID: vehicle, Stops: stops}
	if err := route.Validate(); err != nil {
		return domain.LogicalRoute{}, fmt.Errorf("build route: %w", err)
	}
	return route, nil
}
