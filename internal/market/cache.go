package market

import (
	"sync"
	"time"

	"supplyfinder/internal/domain"
)

const DefaultTTL = 15 * time.Minute

// Cache is a single snapshot slot with a time-to-live. Concurrent misses may
// both refresh; the last Put wins.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	storedAt time.Time
	snap     *domain.Snapshot
}

// NewCache returns an empty Cache. A non-positive ttl uses DefaultTTL and a nil
// clock uses time.Now.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now}
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the snapshot while it is younger than the TTL.
func (c *Cache) Get() (domain.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil || c.now().Sub(c.storedAt) >= c.ttl {
		return domain.Snapshot{}, false
	}
	return *c.snap, true
}

// Stale returns the stored snapshot regardless of age.
func (c *Cache) Stale() (domain.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return domain.Snapshot{}, false
	}
	return *c.snap, true
}

// Put replaces the slot.
func (c *Cache) Put(s domain.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = &s
	c.storedAt = c.now()
}
