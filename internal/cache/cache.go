// Package cache keeps the latest merged result per (category, source
// signature). The fast tier is an in-memory map; a persisted tier is
// consulted on memory misses so a cold process can still paint instantly.
// The signature in the key means toggling a source quietly invalidates
// entries built from the old source set.
package cache

import (
	"sync"
	"time"

	"pulso/internal/news"
)

// Origin says which tier served a cache hit.
type Origin string

const (
	OriginMemory    Origin = "memory"
	OriginPersisted Origin = "persisted"
	OriginMiss      Origin = "miss"
)

// Entry is a cache read result.
type Entry struct {
	Items      []news.Item
	InsertedAt time.Time
	TTL        time.Duration
	Stale      bool
	Origin     Origin
}

// PersistedTier is the slower durable tier behind the in-memory map.
// Implemented by the store package; both methods are best-effort.
type PersistedTier interface {
	CacheGet(category news.Category, signature string) ([]news.Item, time.Time, time.Duration, bool)
	CachePut(category news.Category, signature string, items []news.Item, ttl time.Duration) error
}

type memoryEntry struct {
	items      []news.Item
	insertedAt time.Time
	ttl        time.Duration
}

// Cache is the two-tier result cache. Safe for concurrent use.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	persisted PersistedTier // optional, nil for memory-only
	now       func() time.Time
}

// New creates a Cache. persisted may be nil.
func New(persisted PersistedTier) *Cache {
	return &Cache{
		entries:   make(map[string]memoryEntry),
		persisted: persisted,
		now:       time.Now,
	}
}

func key(category news.Category, signature string) string {
	return string(category) + "/" + signature
}

// Get reads the entry for (category, signature), checking the memory
// tier first and falling back to the persisted tier. The returned entry
// carries staleness and origin so callers can paint immediately while
// knowing whether a refresh is warranted.
func (c *Cache) Get(category news.Category, signature string) Entry {
	c.mu.RLock()
	e, ok := c.entries[key(category, signature)]
	c.mu.RUnlock()

	if ok {
		return Entry{
			Items:      e.items,
			InsertedAt: e.insertedAt,
			TTL:        e.ttl,
			Stale:      c.now().Sub(e.insertedAt) > e.ttl,
			Origin:     OriginMemory,
		}
	}

	if c.persisted != nil {
		if items, insertedAt, ttl, ok := c.persisted.CacheGet(category, signature); ok {
			// Promote into the memory tier with the original insertion
			// time so staleness is preserved.
			c.mu.Lock()
			c.entries[key(category, signature)] = memoryEntry{items: items, insertedAt: insertedAt, ttl: ttl}
			c.mu.Unlock()

			return Entry{
				Items:      items,
				InsertedAt: insertedAt,
				TTL:        ttl,
				Stale:      c.now().Sub(insertedAt) > ttl,
				Origin:     OriginPersisted,
			}
		}
	}

	return Entry{Origin: OriginMiss}
}

// Set stores items for (category, signature) in both tiers. The
// persisted write is best-effort.
func (c *Cache) Set(category news.Category, signature string, items []news.Item, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key(category, signature)] = memoryEntry{items: items, insertedAt: c.now(), ttl: ttl}
	c.mu.Unlock()

	if c.persisted != nil {
		_ = c.persisted.CachePut(category, signature, items, ttl)
	}
}
