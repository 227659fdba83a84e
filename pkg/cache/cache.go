package cache

import (
	"sync"
	"time"

	"github.com/onlhub/boardscope/pkg/domain"
)

// Cache holds the most recent aggregation result per feed key with a TTL.
// Expired entries are kept as last-known-good so callers can serve stale
// data while a refresh runs in the background.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	result    domain.AggregationResult
	expiresAt time.Time
}

// Option configures the cache
type Option func(*Cache)

// WithClock injects a clock, used by tests to advance time without sleeping
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache with the given TTL
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl == 0 {
		ttl = time.Hour
	}
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the feed's snapshot if present and not expired
func (c *Cache) Get(feedKey string) (domain.AggregationResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[feedKey]
	if !ok || !c.now().Before(e.expiresAt) {
		return domain.AggregationResult{}, false
	}
	return e.result, true
}

// GetStale returns the feed's last-known-good snapshot regardless of expiry,
// with fresh reporting whether it is still within its TTL
func (c *Cache) GetStale(feedKey string) (result domain.AggregationResult, ok, fresh bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, found := c.entries[feedKey]
	if !found {
		return domain.AggregationResult{}, false, false
	}
	return e.result, true, c.now().Before(e.expiresAt)
}

// Put stores a snapshot for the feed. Expiry counts from the snapshot's
// generation time, not from store time, so a persisted snapshot loaded after
// a restart keeps the age it already has.
func (c *Cache) Put(feedKey string, result domain.AggregationResult) {
	generatedAt := result.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[feedKey] = entry{result: result, expiresAt: generatedAt.Add(c.ttl)}
}

// Invalidate drops the feed's snapshot entirely
func (c *Cache) Invalidate(feedKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, feedKey)
}

// Keys returns the feed keys currently held, fresh or stale
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}
