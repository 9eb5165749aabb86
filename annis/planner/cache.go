package planner

import (
	"sync"
	"sync/atomic"
	"time"
)

// PlanCache caches execution trees keyed by a caller-supplied string (the
// serialised query + planner options), avoiding re-planning identical
// queries: a size-bounded, TTL-expiring map guarded by a single RWMutex,
// with hit/miss counters for diagnostics.
type PlanCache struct {
	mu      sync.RWMutex
	entries map[string]cachedPlan
	maxSize int
	ttl     time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

type cachedPlan struct {
	plan      *PlanNode
	timestamp time.Time
}

// NewPlanCache creates a cache holding at most maxSize plans, each valid
// for ttl. maxSize <= 0 defaults to 1000; ttl <= 0 defaults to 5 minutes.
func NewPlanCache(maxSize int, ttl time.Duration) *PlanCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PlanCache{entries: make(map[string]cachedPlan), maxSize: maxSize, ttl: ttl}
}

func (c *PlanCache) Get(key string) (*PlanNode, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Since(e.timestamp) > c.ttl {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.plan, true
}

func (c *PlanCache) Set(key string, plan *PlanNode) {
	if c == nil || plan == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = cachedPlan{plan: plan, timestamp: time.Now()}
}

func (c *PlanCache) evictOldestLocked() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for k, e := range c.entries {
		if first || e.timestamp.Before(oldestTime) {
			oldestKey, oldestTime, first = k, e.timestamp, false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

func (c *PlanCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *PlanCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedPlan)
}
