package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryDeduper is an in-memory fallback for deployments without Redis. Dedup
// markers do not survive a restart.
type MemoryDeduper struct {
	mu    sync.Mutex
	items map[string]time.Time
}

// NewMemoryDeduper creates a new in-memory deduper
func NewMemoryDeduper() *MemoryDeduper {
	store := &MemoryDeduper{
		items: make(map[string]time.Time),
	}

	// Start cleanup goroutine to remove expired items
	go store.cleanupExpired()

	return store
}

// MarkSeen returns true when the key was not seen within the ttl window.
func (ms *MemoryDeduper) MarkSeen(_ context.Context, key string, ttl time.Duration) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	if expiry, exists := ms.items[key]; exists && now.Before(expiry) {
		return false, nil
	}
	ms.items[key] = now.Add(ttl)
	return true, nil
}

// cleanupExpired periodically removes expired items
func (ms *MemoryDeduper) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ms.mu.Lock()
		now := time.Now()
		for key, expiry := range ms.items {
			if now.After(expiry) {
				delete(ms.items, key)
			}
		}
		ms.mu.Unlock()
	}
}
