// Package cache implements the content-addressed TTL cache that fronts every
// signal collector (spec.md §4.2). It is grounded on the LRU structure in
// engine/internal/resources/manager.go, generalized from a single fixed page
// type to a generic key/value cache and from capacity-bound eviction to
// TTL-bound expiry (collector results are small scalars, not page bodies, so
// the teacher's disk-spill half of manager.go has no counterpart here).
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	negative  bool
}

// Cache is a TTL-bound, mutex-guarded cache keyed by string. Positive and
// negative results may carry different TTLs (the geocoder's asymmetric
// 10-minute negative / process-lifetime positive cache is the motivating
// case — see internal/address).
type Cache[V any] struct {
	mu    sync.Mutex
	clock Clock
	lru   *list.List
	items map[string]*list.Element
}

// New builds an empty cache. Pass nil for clock to use wall-clock time.
func New[V any](clock Clock) *Cache[V] {
	if clock == nil {
		clock = realClock{}
	}
	return &Cache[V]{clock: clock, lru: list.New(), items: make(map[string]*list.Element)}
}

// Get returns the cached value if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if !e.expiresAt.IsZero() && c.clock.Now().After(e.expiresAt) {
		c.lru.Remove(el)
		delete(c.items, key)
		return zero, false
	}
	c.lru.MoveToFront(el)
	return e.value, true
}

// Set stores value under key with the given TTL. A zero TTL means "never expires"
// (used for positive geocoder hits, which live for the process lifetime).
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clock.Now().Add(ttl)
	}
	if el, ok := c.items[key]; ok {
		el.Value.(*entry[V]).value = value
		el.Value.(*entry[V]).expiresAt = expiresAt
		c.lru.MoveToFront(el)
		return
	}
	el := c.lru.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = el
}

// Len reports the number of stored entries, including expired ones that no
// Get has evicted yet.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
