package fmi

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/couchcryptid/sales-synth-service/internal/domain"
	"github.com/couchcryptid/sales-synth-service/internal/observability"
)

// CachedFetcher wraps an ObservationFetcher with an in-memory LRU cache.
// Regeneration runs re-fetch the same lookback window repeatedly; the cache
// keeps the API traffic down to one query per distinct window.
type CachedFetcher struct {
	inner   domain.ObservationFetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around an observation fetcher.
func NewCachedFetcher(inner domain.ObservationFetcher, maxEntries int, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// FetchObservations serves from cache when the exact same query was seen
// before. Cached frames are copied on the way in and out so callers can
// mutate their result freely.
func (c *CachedFetcher) FetchObservations(ctx context.Context, place string, interval domain.Interval, codes []string) (*domain.Frame, error) {
	key := fmt.Sprintf("%s|%s|%s", place, interval.String(), strings.Join(codes, ","))
	if frame, ok := c.cache.get(key); ok {
		c.countCache("hit")
		return frame.Copy(), nil
	}
	c.countCache("miss")

	frame, err := c.inner.FetchObservations(ctx, place, interval, codes)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty frames so a transiently empty response can be retried.
	if frame.Len() > 0 {
		c.cache.put(key, frame.Copy())
	}
	return frame, nil
}

func (c *CachedFetcher) countCache(result string) {
	if c.metrics != nil {
		c.metrics.FetchCache.WithLabelValues(result).Inc()
	}
}

// lruCache is a simple thread-safe LRU cache for observation frames.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value *domain.Frame
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*domain.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *domain.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
