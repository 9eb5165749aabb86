package corpus

import (
	"container/list"
	"sync"

	"github.com/korpling/graphANNIS-sub001"
)

// Cache is the process-wide corpus cache: a single mutex, an
// estimated-size budget, and least-recently-used eviction of corpora
// nobody currently holds. Same bounded/guarded-map shape as
// planner.PlanCache, generalised with an explicit refcount since a corpus
// (unlike a cached plan) must never be evicted out from under an in-flight
// query.
type Cache struct {
	mu          sync.Mutex
	budgetBytes int64
	usedBytes   int64

	entries map[string]*cacheEntry
	lru     *list.List // front = most recently used
}

type cacheEntry struct {
	corpus  *Corpus
	size    int64
	refs    int
	evicted bool
	elem    *list.Element // element in lru, valued with the key string
}

// NewCache creates an empty cache with the given estimated-size budget in
// bytes. A non-positive budget disables eviction (every loaded corpus is
// kept).
func NewCache(budgetBytes int64) *Cache {
	return &Cache{
		budgetBytes: budgetBytes,
		entries:     make(map[string]*cacheEntry),
		lru:         list.New(),
	}
}

// Handle is a borrowed reference to a cached corpus; callers must call
// Release exactly once when done querying it.
type Handle struct {
	cache *Cache
	key   string
	entry *cacheEntry
}

// Corpus returns the borrowed corpus, or an error if it was evicted while
// borrowed (which Acquire/Release's refcounting should make unreachable in
// practice, but queries that hold a Handle across a Release should check
// this rather than assume the pointer stays valid).
func (h *Handle) Corpus() (*Corpus, error) {
	h.cache.mu.Lock()
	defer h.cache.mu.Unlock()
	if h.entry.evicted {
		return nil, annis.NewError(annis.CorpusUnavailable, "corpus evicted during query")
	}
	return h.entry.corpus, nil
}

// Release returns the handle to the cache, making the corpus eligible for
// eviction once its refcount reaches zero.
func (h *Handle) Release() {
	h.cache.mu.Lock()
	defer h.cache.mu.Unlock()
	h.entry.refs--
	if h.entry.refs < 0 {
		h.entry.refs = 0
	}
	h.cache.evictLocked()
}

// Acquire returns a Handle to the corpus at key, loading it via load if not
// already cached. size is the estimated in-memory footprint load()
// reports, used for eviction accounting; it is only consulted on a cache
// miss.
func (c *Cache) Acquire(key string, load func() (*Corpus, int64, error)) (*Handle, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && !e.evicted {
		e.refs++
		c.lru.MoveToFront(e.elem)
		c.mu.Unlock()
		return &Handle{cache: c, key: key, entry: e}, nil
	}
	c.mu.Unlock()

	cp, size, err := load()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && !e.evicted {
		e.refs++
		c.lru.MoveToFront(e.elem)
		return &Handle{cache: c, key: key, entry: e}, nil
	}

	e := &cacheEntry{corpus: cp, size: size, refs: 1}
	e.elem = c.lru.PushFront(key)
	c.entries[key] = e
	c.usedBytes += size
	c.evictLocked()
	return &Handle{cache: c, key: key, entry: e}, nil
}

// evictLocked drops least-recently-used, zero-refcount entries until
// usedBytes fits the budget (or every evictable entry is gone). Entries
// still borrowed (refs > 0) are never evicted: storage must not disappear
// under an in-flight query.
func (c *Cache) evictLocked() {
	if c.budgetBytes <= 0 {
		return
	}
	for elem := c.lru.Back(); elem != nil && c.usedBytes > c.budgetBytes; {
		prev := elem.Prev()
		key := elem.Value.(string)
		e := c.entries[key]
		if e.refs == 0 {
			e.evicted = true
			c.usedBytes -= e.size
			delete(c.entries, key)
			c.lru.Remove(elem)
		}
		elem = prev
	}
}

// Stats reports the cache's current accounting, for the `memory` CLI
// command.
func (c *Cache) Stats() (entries int, usedBytes, budgetBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), c.usedBytes, c.budgetBytes
}
