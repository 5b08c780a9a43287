package playback

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/obs"
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrNotRunning = errors.New("vehicle is not running")

// Position is published on every tick.
type Position struct {
	SessionID       string           `json:"session_id"`
	VehicleID       domain.VehicleID `json:"vehicle_id"`
	Coordinates     domain.LatLng    `json:"coordinates"`
	GeometryIndex   int              `json:"geometry_index"`
	SegmentProgress float64          `json:"segment_progress"`
	Load            float64          `json:"load"`
	Loop            int              `json:"loop"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Observer receives updates from the runner goroutines. Implementations
// must not block and must not call Stop or StopAll.
type Observer interface {
	OnStopEvent(domain.StopEvent)
	OnPosition(Position)
}

type nopObserver struct{}

func (nopObserver) OnStopEvent(domain.StopEvent) {}
func (nopObserver) OnPosition(Position)          {}

// VehicleRoute is everything needed to animate one vehicle.
type VehicleRoute struct {
	Vehicle   domain.Vehicle
	Stops     []domain.LogicalStop
	Path      domain.ResolvedPath
	Alignment domain.StopAlignment
}

// Session describes a running playback. It does not change after Start.
type Session struct {
	ID        string
	StartedAt time.Time
	VehicleRoute
}

type Status string

const (
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
)

// Snapshot is a read-only copy of a vehicle's playback state.
type Snapshot struct {
	SessionID              string            `json:"session_id"`
	VehicleID              domain.VehicleID  `json:"vehicle_id"`
	Status                 Status            `json:"status"`
	Source                 domain.PathSource `json:"source"`
	Position               domain.LatLng     `json:"position"`
	GeometryIndex          int               `json:"geometry_index"`
	GeometryLength         int               `json:"geometry_length"`
	SegmentProgress        float64           `json:"segment_progress"`
	Load                   float64           `json:"load"`
	Capacity               float64           `json:"capacity"`
	LastTriggeredStopIndex int               `json:"last_triggered_stop_index"`
	Collecting             bool              `json:"collecting"`
	Loops                  int               `json:"loops"`
}

type runner struct {
	session Session

	mu         sync.Mutex
	state      *VehicleState
	collecting bool

	paused   atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func (r *runner) halt() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// wait sleeps for d unless the runner is stopped first.
func (r *runner) wait(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-r.stop:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-r.stop:
		return false
	case <-t.C:
		return true
	}
}

// Engine animates vehicles along their resolved paths, one goroutine per
// vehicle.
type Engine struct {
	cfg      Config
	observer Observer
	now      func() time.Time

	mu      sync.Mutex
	runners map[domain.VehicleID]*runner

	collected *ledger
}

func NewEngine(cfg Config, observer Observer) *Engine {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Engine{
		cfg:       cfg.withDefaults(),
		observer:  observer,
		now:       time.Now,
		runners:   make(map[domain.VehicleID]*runner),
		collected: newLedger(),
	}
}

func (e *Engine) Config() Config { return e.cfg }

// Start begins playback of a vehicle. A vehicle that is already running is
// stopped first and starts over.
func (e *Engine) Start(route VehicleRoute) (Session, error) {
	state, err := NewVehicleState(route.Vehicle, route.Stops, route.Path, route.Alignment, e.cfg.StepsPerSegment)
	if err != nil {
		return Session{}, err
	}
	if e.cfg.SharedCollection {
		id := route.Vehicle.ID
		state.claim = func(stop domain.StopID) bool { return e.collected.claim(stop, id) }
	}

	r := &runner{
		session: Session{
			ID:           uuid.NewString(),
			StartedAt:    e.now(),
			VehicleRoute: route,
		},
		state: state,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	e.mu.Lock()
	prev := e.runners[route.Vehicle.ID]
	e.runners[route.Vehicle.ID] = r
	e.mu.Unlock()

	if prev != nil {
		prev.halt()
		<-prev.done
		e.collected.release(route.Vehicle.ID)
	}

	log.Info().
		Str("session", r.session.ID).
		Int("vehicle", int(route.Vehicle.ID)).
		Int("points", len(route.Path.Coordinates)).
		Str("source", string(route.Path.Source)).
		Msg("playback started")

	go e.run(r)
	return r.session, nil
}

// Stop ends playback of a vehicle and cancels a pending collecting delay.
// Stopping a vehicle that is not running does nothing.
func (e *Engine) Stop(id domain.VehicleID) {
	e.mu.Lock()
	r := e.runners[id]
	delete(e.runners, id)
	e.mu.Unlock()

	if r == nil {
		return
	}
	r.halt()
	<-r.done
	e.collected.release(id)
}

// StopAll stops every vehicle and returns once no runner goroutine is left.
func (e *Engine) StopAll() {
	e.mu.Lock()
	runners := make([]*runner, 0, len(e.runners))
	for id, r := range e.runners {
		runners = append(runners, r)
		delete(e.runners, id)
	}
	e.mu.Unlock()

	for _, r := range runners {
		r.halt()
	}
	for _, r := range runners {
		<-r.done
	}
	e.collected.reset()
}

// Collected maps each collection point taken under SharedCollection to the
// vehicle that owns it.
func (e *Engine) Collected() map[domain.StopID]domain.VehicleID {
	return e.collected.snapshot()
}

func (e *Engine) Pause(id domain.VehicleID) error {
	r := e.runner(id)
	if r == nil {
		return ErrNotRunning
	}
	r.paused.Store(true)
	return nil
}

func (e *Engine) Resume(id domain.VehicleID) error {
	r := e.runner(id)
	if r == nil {
		return ErrNotRunning
	}
	r.paused.Store(false)
	return nil
}

func (e *Engine) Snapshot(id domain.VehicleID) (Snapshot, error) {
	r := e.runner(id)
	if r == nil {
		return Snapshot{}, ErrNotRunning
	}

	status := StatusRunning
	if r.paused.Load() {
		status = StatusPaused
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state
	return Snapshot{
		SessionID:              r.session.ID,
		VehicleID:              s.Vehicle.ID,
		Status:                 status,
		Source:                 s.Path.Source,
		Position:               s.Position(),
		GeometryIndex:          s.GeometryIndex,
		GeometryLength:         len(s.Path.Coordinates),
		SegmentProgress:        s.SegmentProgress(),
		Load:                   s.Load,
		Capacity:               s.Vehicle.Capacity,
		LastTriggeredStopIndex: s.LastTriggeredStopIndex,
		Collecting:             r.collecting,
		Loops:                  s.Loops,
	}, nil
}

// Running lists the vehicles in playback, sorted by id.
func (e *Engine) Running() []domain.VehicleID {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]domain.VehicleID, 0, len(e.runners))
	for id := range e.runners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Sessions returns the running sessions, sorted by vehicle id.
func (e *Engine) Sessions() []Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Session, 0, len(e.runners))
	for _, r := range e.runners {
		out = append(out, r.session)
	}
	slices.SortFunc(out, func(a, b Session) int {
		return int(a.Vehicle.ID) - int(b.Vehicle.ID)
	})
	return out
}

func (e *Engine) runner(id domain.VehicleID) *runner {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runners[id]
}

// release drops r from the registry unless it was already replaced.
func (e *Engine) release(r *runner) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runners[r.session.Vehicle.ID] == r {
		delete(e.runners, r.session.Vehicle.ID)
	}
}

func (e *Engine) run(r *runner) {
	defer close(r.done)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}
		if r.paused.Load() {
			continue
		}

		waited, ok := e.tick(r)
		if !ok {
			return
		}
		if waited {
			// ticks that piled up while collecting are dropped
			select {
			case <-ticker.C:
			default:
			}
		}
		if e.finished(r) {
			e.release(r)
			log.Info().Str("session", r.session.ID).Int("vehicle", int(r.session.Vehicle.ID)).Msg("playback finished")
			return
		}
	}
}

func (e *Engine) finished(r *runner) bool {
	if e.cfg.MaxLoops == 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Loops >= e.cfg.MaxLoops
}

// tick advances r by one step and fires the stops it reaches. ok is false
// when the runner was stopped during a collecting delay.
func (e *Engine) tick(r *runner) (waited, ok bool) {
	r.mu.Lock()
	due, looped := r.state.Advance(e.cfg.ArrivalTolerance)
	pos := e.position(r)
	r.mu.Unlock()

	if looped {
		log.Debug().Str("session", r.session.ID).Int("loop", pos.Loop).Msg("playback loop restarted")
	}
	e.observer.OnPosition(pos)

	for _, p := range due {
		r.mu.Lock()
		events, collect := r.state.Arrive(p, e.now())
		r.collecting = collect
		r.mu.Unlock()
		e.emit(events)

		if !collect {
			continue
		}
		waited = true
		if !r.wait(e.cfg.CollectDelay) {
			return waited, false
		}

		r.mu.Lock()
		events = r.state.CompleteCollection(p, e.now())
		r.collecting = false
		r.mu.Unlock()
		e.emit(events)
	}
	return waited, true
}

// position must be called with r.mu held.
func (e *Engine) position(r *runner) Position {
	s := r.state
	return Position{
		SessionID:       r.session.ID,
		VehicleID:       s.Vehicle.ID,
		Coordinates:     s.Position(),
		GeometryIndex:   s.GeometryIndex,
		SegmentProgress: s.SegmentProgress(),
		Load:            s.Load,
		Loop:            s.Loops,
		Timestamp:       e.now(),
	}
}

func (e *Engine) emit(events []domain.StopEvent) {
	for _, ev := range events {
		obs.CountStopEvent(context.Background(), string(ev.Type))
		log.Debug().
			Int("vehicle", int(ev.VehicleID)).
			Int("stop", int(ev.StopID)).
			Str("event", string(ev.Type)).
			Float64("load", ev.LoadAfter).
			Send()
		e.observer.OnStopEvent(ev)
	}
}
