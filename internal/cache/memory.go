package cache

import (
	"sync"
	"time"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryCache is an in-process map-backed Cache, the default backend
// when no external store is configured.
type MemoryCache struct {
	cfg Configuration

	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache returns a MemoryCache for cfg.
func NewMemoryCache(cfg Configuration) *MemoryCache {
	return &MemoryCache{cfg: cfg, entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Configuration() Configuration { return c.cfg }

func (c *MemoryCache) Connect() error { return nil }

func (c *MemoryCache) Store(key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{data: data, expires: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Retrieve(key string, allowExpired bool) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrKeyNotFound{Key: key}
	}
	if !allowExpired && c.now().After(e.expires) {
		return nil, ErrKeyNotFound{Key: key}
	}
	return e.data, nil
}

func (c *MemoryCache) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *MemoryCache) Close() error { return nil }
