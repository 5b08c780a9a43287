package cache

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/obs"
	"collection-route-service/internal/ports"
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultCapacity = 1000
	persistTimeout  = 10 * time.Second
)

type entry struct {
	key  string
	path domain.ResolvedPath
}

// GeometryCache maps canonical coordinate keys to resolved paths.
//
// It is bounded: inserting past capacity drops the least recently used
// entries. Every Put schedules a background write of the whole cache to the
// configured store. Store failures are logged and never reach the caller.
//
// Cached paths are shared between callers and must not be mutated.
// The cache is safe for concurrent use.
type GeometryCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
	hits     uint64
	misses   uint64
	revision uint64

	store     ports.GeometryStore
	persistMu sync.Mutex
	saved     uint64
	pending   sync.WaitGroup
}

type Stats struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Size     int    `json:"size"`
	Capacity int    `json:"capacity"`
}

// NewGeometryCache creates a cache holding at most capacity entries.
// store may be nil for a memory-only cache.
func NewGeometryCache(capacity int, store ports.GeometryStore) *GeometryCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &GeometryCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
		store:    store,
	}
}

func (c *GeometryCache) Get(key string) (domain.ResolvedPath, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return domain.ResolvedPath{}, false
	}
	c.hits++
	c.ll.MoveToFront(el)
	return el.Value.(*entry).path, true
}

// Put stores path under key and persists in the background.
func (c *GeometryCache) Put(key string, path domain.ResolvedPath) {
	c.mu.Lock()
	c.insertLocked(key, path)
	c.mu.Unlock()

	if c.store == nil {
		return
	}

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		_ = c.persist(ctx)
	}()
}

func (c *GeometryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *GeometryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Size: c.ll.Len(), Capacity: c.capacity}
}

func (c *GeometryCache) insertLocked(key string, path domain.ResolvedPath) {
	c.revision++

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).path = path
		c.ll.MoveToFront(el)
		return
	}

	c.items[key] = c.ll.PushFront(&entry{key: key, path: path})
	for c.ll.Len() > c.capacity {
		c.removeOldestLocked()
	}
}

func (c *GeometryCache) removeOldestLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}

// trim keeps the n most recently used entries.
func (c *GeometryCache) trim(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.ll.Len() > n {
		c.removeOldestLocked()
	}
	c.revision++
}

func (c *GeometryCache) snapshot() (domain.CacheSnapshot, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	routes := make(map[string]domain.ResolvedPath, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		routes[e.key] = e.path
	}
	return domain.CacheSnapshot{
		Version:   domain.CacheVersion,
		Timestamp: time.Now().UTC(),
		Routes:    routes,
	}, c.revision
}

// persist writes the current contents unless a newer write already covered
// them. On failure the cache is halved and the write retried once.
func (c *GeometryCache) persist(ctx context.Context) (err error) {
	defer obs.Time(ctx, "geometry.cache.persist")(&err)

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	snap, rev := c.snapshot()
	if rev == c.saved {
		return nil
	}

	if err := c.store.SaveSnapshot(ctx, snap); err != nil {
		log.Warn().Err(err).Int("entries", len(snap.Routes)).Msg("geometry cache write failed, trimming and retrying")

		c.trim(len(snap.Routes) / 2)
		snap, rev = c.snapshot()
		if err := c.store.SaveSnapshot(ctx, snap); err != nil {
			log.Error().Err(err).Int("entries", len(snap.Routes)).Msg("geometry cache retry failed")
			return fmt.Errorf("persist geometry cache: %w", err)
		}
	}

	c.saved = rev
	return nil
}

// Load warms the cache from the store. A snapshot written by another cache
// version is discarded, not migrated.
func (c *GeometryCache) Load(ctx context.Context) (err error) {
	defer obs.Time(ctx, "geometry.cache.Load")(&err)

	if c.store == nil {
		return nil
	}

	snap, err := c.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load geometry cache: %w", err)
	}
	if snap == nil {
		return nil
	}
	if snap.Version != domain.CacheVersion {
		log.Warn().
			Str("found", snap.Version).
			Str("want", domain.CacheVersion).
			Msg("discarding geometry cache with mismatched version")
		return nil
	}

	c.mu.Lock()
	for key, path := range snap.Routes {
		c.insertLocked(key, path)
	}
	rev := c.revision
	c.mu.Unlock()

	c.persistMu.Lock()
	c.saved = rev
	c.persistMu.Unlock()

	log.Info().Int("entries", c.Len()).Time("written_at", snap.Timestamp).Msg("geometry cache loaded")
	return nil
}

// Flush waits for background writes and then persists synchronously.
func (c *GeometryCache) Flush(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	c.pending.Wait()
	return c.persist(ctx)
}
