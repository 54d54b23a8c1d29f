package cache

import (
	"context"
	"fmt"
	"sync"
)

const layerMemory = "memory"

// MemoryBackend keeps entries in process.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]*Entry),
	}
}

// Get retrieves a copy of the entry for key.
// Returns ErrCacheMiss if the key doesn't exist or the entry is expired.
func (b *MemoryBackend) Get(_ context.Context, key QueryKey) (*Entry, error) {
	b.mu.RLock()
	entry, ok := b.entries[key.String()]
	b.mu.RUnlock()

	if !ok || entry.IsExpired() {
		CacheMisses.WithLabelValues(layerMemory).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(layerMemory).Inc()
	return entry.Clone(), nil
}

// Set stores a copy of entry.
func (b *MemoryBackend) Set(_ context.Context, key QueryKey, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.store(key.String(), entry)
	return nil
}

// Update applies fn under the backend lock.
func (b *MemoryBackend) Update(_ context.Context, key QueryKey, fn UpdateFunc) (*Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key.String()
	current, ok := b.entries[k]
	if ok && current.IsExpired() {
		delete(b.entries, k)
		current = nil
	}

	next, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}
	if next != nil {
		b.store(k, next)
	}

	return current.Clone(), nil
}

// Delete removes the entry for key.
func (b *MemoryBackend) Delete(_ context.Context, key QueryKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.entries, key.String())
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *MemoryBackend) store(k string, entry *Entry) {
	if entry.IsExpired() {
		delete(b.entries, k)
		return
	}
	b.entries[k] = entry.Clone()
}
