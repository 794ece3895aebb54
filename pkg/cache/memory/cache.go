// Package memory is the in-process advisory cache.
//
// Each query kind has its own bounded LRU. Concurrent misses for the same key
// share one computation, and only successful results are stored.
package memory

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ircmdb/ircmdb/pkg/config"
	"github.com/ircmdb/ircmdb/pkg/models"
	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the value for a missing key.
type ComputeFunc func(ctx context.Context) (models.AdvisoryResult, error)

// Options sets per-kind capacities. Values <= 0 use config.DefaultCacheCapacity.
type Options struct {
	FAQCapacity   int
	AdHocCapacity int
}

// Cache is a per-kind LRU with single-flight miss handling.
type Cache struct {
	mu    sync.Mutex
	kinds map[models.QueryKind]*lru

	flight singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	shared    atomic.Int64
	evictions atomic.Int64

	now func() time.Time
}

type lru struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

// New creates a Cache.
func New(opts Options) *Cache {
	c := &Cache{
		kinds: map[models.QueryKind]*lru{
			models.KindFAQ:   newLRU(opts.FAQCapacity),
			models.KindAdHoc: newLRU(opts.AdHocCapacity),
		},
		now: time.Now,
	}
	return c
}

// FromConfig creates a Cache from the cache section of the configuration.
func FromConfig(cfg config.CacheConfig) *Cache {
	return New(Options{FAQCapacity: cfg.FAQCapacity, AdHocCapacity: cfg.AdHocCapacity})
}

func newLRU(capacity int) *lru {
	if capacity <= 0 {
		capacity = config.DefaultCacheCapacity
	}
	return &lru{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// GetOrCompute returns the cached value for key, or runs compute to produce it.
// Concurrent callers with the same key wait for a single compute. A failed
// compute is returned to every waiter and leaves the cache unchanged.
// compute runs detached from ctx cancellation so that one caller giving up
// does not fail the others; backends bound it with their own timeout.
func (c *Cache) GetOrCompute(ctx context.Context, key models.CacheKey, compute ComputeFunc) (models.AdvisoryResult, models.CacheOutcome, error) {
	id := key.String()
	if v, ok := c.get(key.Kind, id); ok {
		c.hits.Add(1)
		return v.Clone(), models.OutcomeHit, nil
	}

	ran := false
	res, err, shared := c.flight.Do(id, func() (any, error) {
		// another flight may have filled the entry between our lookup and Do
		if v, ok := c.get(key.Kind, id); ok {
			return v, nil
		}
		ran = true
		v, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.put(key, id, v)
		return v, nil
	})

	outcome := models.OutcomeMiss
	switch {
	case shared && !ran:
		outcome = models.OutcomeShared
		c.shared.Add(1)
	case !ran:
		outcome = models.OutcomeHit
		c.hits.Add(1)
	default:
		c.misses.Add(1)
	}

	if err != nil {
		return models.AdvisoryResult{}, outcome, err
	}
	return res.(models.AdvisoryResult).Clone(), outcome, nil
}

func (c *Cache) get(kind models.QueryKind, id string) (models.AdvisoryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := c.kinds[kind]
	if l == nil {
		return models.AdvisoryResult{}, false
	}
	el, ok := l.items[id]
	if !ok {
		return models.AdvisoryResult{}, false
	}
	l.order.MoveToFront(el)
	return el.Value.(*models.CacheEntry).Value, true
}

func (c *Cache) put(key models.CacheKey, id string, v models.AdvisoryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := c.kinds[key.Kind]
	if l == nil {
		l = newLRU(0)
		c.kinds[key.Kind] = l
	}

	entry := &models.CacheEntry{Key: key, Value: v.Clone(), CreatedAt: c.now()}
	if el, ok := l.items[id]; ok {
		el.Value = entry
		l.order.MoveToFront(el)
		return
	}
	l.items[id] = l.order.PushFront(entry)

	for l.order.Len() > l.capacity {
		oldest := l.order.Back()
		l.order.Remove(oldest)
		delete(l.items, oldest.Value.(*models.CacheEntry).Key.String())
		c.evictions.Add(1)
	}
}

// Contains reports whether key is cached without touching its recency.
func (c *Cache) Contains(key models.CacheKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := c.kinds[key.Kind]
	if l == nil {
		return false
	}
	_, ok := l.items[key.String()]
	return ok
}

// Len returns the number of cached entries of the given kind.
func (c *Cache) Len(kind models.QueryKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l := c.kinds[kind]; l != nil {
		return l.order.Len()
	}
	return 0
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() models.CacheStats {
	c.mu.Lock()
	entries := make(map[models.QueryKind]int, len(c.kinds))
	capacity := make(map[models.QueryKind]int, len(c.kinds))
	for k, l := range c.kinds {
		entries[k] = l.order.Len()
		capacity[k] = l.capacity
	}
	c.mu.Unlock()

	return models.CacheStats{
		Entries:   entries,
		Capacity:  capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Shared:    c.shared.Load(),
		Evictions: c.evictions.Load(),
	}
}
