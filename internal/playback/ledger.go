package playback

import (
	"collection-route-service/internal/domain"
	"sync"
)

// ledger records which vehicle took each collection point when several
// vehicles share a fleet-wide view of the stops. The first vehicle to reach
// a point owns it; others pass it by.
type ledger struct {
	mu     sync.Mutex
	owners map[domain.StopID]domain.VehicleID
}

func newLedger() *ledger {
	return &ledger{owners: make(map[domain.StopID]domain.VehicleID)}
}

// claim reports whether vehicle may collect stop. The owner keeps its claim
// on later loops.
func (l *ledger) claim(stop domain.StopID, vehicle domain.VehicleID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	owner, ok := l.owners[stop]
	if !ok {
		l.owners[stop] = vehicle
		return true
	}
	return owner == vehicle
}

func (l *ledger) release(vehicle domain.VehicleID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for stop, owner := range l.owners {
		if owner == vehicle {
			delete(l.owners, stop)
		}
	}
}

func (l *ledger) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.owners)
}

func (l *ledger) snapshot() map[domain.StopID]domain.VehicleID {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[domain.StopID]domain.VehicleID, len(l.owners))
	for stop, owner := range l.owners {
		out[stop] = owner
	}
	return out
}
