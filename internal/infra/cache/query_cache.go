package cache

import (
	"container/list"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/infra/metrics"
)

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Hits    int64         `json:"hits"`
	Misses  int64         `json:"misses"`
	HitRate float64       `json:"hit_rate"`
	Size    int           `json:"size"`
	MaxSize int           `json:"max_size"`
	MaxAge  time.Duration `json:"max_age"`
}

type entry[V any] struct {
	key       string
	value     V
	createdAt time.Time
}

// QueryCache is a bounded TTL cache keyed by normalized
// (query, options) pairs, evicting least-recently-used entries when
// full. Safe for concurrent use: independent searches share one
// instance per orchestrator.
type QueryCache[V any] struct {
	mu      sync.Mutex
	name    string
	maxSize int
	maxAge  time.Duration
	order   *list.List // front = most recently used
	items   map[string]*list.Element
	hits    int64
	misses  int64
	now     func() time.Time
}

// New constructs a cache. name labels the hit/miss metrics; maxSize
// and maxAge must be positive.
func New[V any](name string, maxSize int, maxAge time.Duration) *QueryCache[V] {
	if maxSize <= 0 {
		maxSize = 100
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &QueryCache[V]{
		name:    name,
		maxSize: maxSize,
		maxAge:  maxAge,
		order:   list.New(),
		items:   make(map[string]*list.Element),
		now:     time.Now,
	}
}

// Key normalizes (query, options): the query is case-folded and
// trimmed, options serialize field-by-field so equal option sets always
// collide.
func Key(query string, opts model.SearchOptions) string {
	return fmt.Sprintf("%s|%d|%s|%s|%s",
		strings.ToLower(strings.TrimSpace(query)),
		opts.MaxResults, opts.Country, opts.Language, opts.Freshness)
}

// Get returns the cached value for (query, options). An expired entry
// counts as a miss and is purged in place.
func (c *QueryCache[V]) Get(query string, opts model.SearchOptions) (V, bool) {
	var zero V
	k := Key(query, opts)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[k]
	if !ok {
		c.misses++
		metrics.IncCacheRequest(c.name, "miss")
		return zero, false
	}
	ent := elem.Value.(*entry[V])
	if c.now().Sub(ent.createdAt) > c.maxAge {
		c.order.Remove(elem)
		delete(c.items, k)
		c.misses++
		metrics.IncCacheRequest(c.name, "miss")
		return zero, false
	}
	c.hits++
	metrics.IncCacheRequest(c.name, "hit")
	c.order.MoveToFront(elem)
	return ent.value, true
}

// Set inserts or overwrites under the normalized key, evicting exactly
// one least-recently-used entry when over capacity.
func (c *QueryCache[V]) Set(query string, opts model.SearchOptions, value V) {
	k := Key(query, opts)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[k]; ok {
		ent := elem.Value.(*entry[V])
		ent.value = value
		ent.createdAt = c.now()
		c.order.MoveToFront(elem)
		return
	}
	c.items[k] = c.order.PushFront(&entry[V]{key: k, value: value, createdAt: c.now()})
	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry[V]).key)
			metrics.IncCacheEviction(c.name)
		}
	}
}

// Clear empties the cache and resets the hit/miss counters.
func (c *QueryCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
	c.hits, c.misses = 0, 0
}

// Size counts live (non-expired) entries without purging them.
func (c *QueryCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	cutoff := c.now().Add(-c.maxAge)
	for e := c.order.Front(); e != nil; e = e.Next() {
		if !e.Value.(*entry[V]).createdAt.Before(cutoff) {
			n++
		}
	}
	return n
}

// Cleanup actively removes all expired entries and returns how many it
// removed, as opposed to the lazy purge Get performs.
func (c *QueryCache[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-c.maxAge)
	removed := 0
	for e := c.order.Front(); e != nil; {
		next := e.Next()
		ent := e.Value.(*entry[V])
		if ent.createdAt.Before(cutoff) {
			c.order.Remove(e)
			delete(c.items, ent.key)
			removed++
		}
		e = next
	}
	return removed
}

// Stats reports the hit rate rounded to two decimals (0 before any
// lookup) alongside the cache's configuration and live size.
func (c *QueryCache[V]) Stats() Stats {
	c.mu.Lock()
	hits, misses := c.hits, c.misses
	c.mu.Unlock()

	rate := 0.0
	if total := hits + misses; total > 0 {
		rate = math.Round(float64(hits)/float64(total)*100) / 100
	}
	return Stats{
		Hits:    hits,
		Misses:  misses,
		HitRate: rate,
		Size:    c.Size(),
		MaxSize: c.maxSize,
		MaxAge:  c.maxAge,
	}
}
