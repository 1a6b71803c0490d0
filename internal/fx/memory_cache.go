package fx

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/travel-pricing/internal/clock"
)

type memoryItem struct {
	entry     Entry
	expiresAt time.Time
}

// MemoryCache is a process-wide rate cache. Concurrent writers are last-write-wins.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[Pair]memoryItem
	clock clock.Clock
}

// NewMemoryCache builds an empty cache. A nil clock uses the system clock.
func NewMemoryCache(c clock.Clock) *MemoryCache {
	return &MemoryCache{items: make(map[Pair]memoryItem), clock: clock.Or(c)}
}

// Get returns the entry for pair when it has not expired.
func (m *MemoryCache) Get(_ context.Context, pair Pair) (Entry, bool, error) {
	m.mu.RLock()
	item, ok := m.items[pair]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	if !item.expiresAt.IsZero() && !m.clock.Now().Before(item.expiresAt) {
		m.mu.Lock()
		if cur, ok := m.items[pair]; ok && cur.expiresAt.Equal(item.expiresAt) {
			delete(m.items, pair)
		}
		m.mu.Unlock()
		return Entry{}, false, nil
	}
	return item.entry, true, nil
}

// Put stores entry for ttl. A non-positive ttl keeps the entry until overwritten.
func (m *MemoryCache) Put(_ context.Context, pair Pair, entry Entry, ttl time.Duration) error {
	var expires time.Time
	if ttl > 0 {
		expires = m.clock.Now().Add(ttl)
	}
	m.mu.Lock()
	m.items[pair] = memoryItem{entry: entry, expiresAt: expires}
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored pairs, expired or not.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
