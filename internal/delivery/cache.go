package delivery

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type cacheEntry struct {
	value    interface{}
	storedAt time.Time
	ttl      time.Duration
}

// ttlCache memoizes idempotent external lookups. Expired entries are evicted
// lazily on read and in bulk by sweep; there is no size bound because key
// cardinality is bounded by distinct postal codes and cart shapes.
type ttlCache struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	entries map[string]cacheEntry
}

func newTTLCache(clock clockwork.Clock) *ttlCache {
	return &ttlCache{clock: clock, entries: make(map[string]cacheEntry)}
}

// get returns the cached value while now <= storedAt+ttl; anything older is
// evicted and reported as a miss.
func (c *ttlCache) get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Now().After(entry.storedAt.Add(entry.ttl)) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// put unconditionally overwrites.
func (c *ttlCache) put(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, storedAt: c.clock.Now(), ttl: ttl}
}

// sweep removes every expired entry and returns how many were dropped.
func (c *ttlCache) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.storedAt.Add(entry.ttl)) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *ttlCache) stats() PartitionStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return PartitionStats{Size: len(c.entries), Keys: keys}
}
