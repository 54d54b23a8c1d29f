package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrConflict indicates an atomic update kept losing against concurrent writers
	ErrConflict = errors.New("cache update conflict")

	// ErrFetchCancelled indicates a fetch was cancelled and nothing is cached for its key
	ErrFetchCancelled = errors.New("fetch cancelled")
)

// UpdateFunc computes the next entry from the current one.
// current is nil on a cache miss. Returning a nil entry leaves the cache untouched.
type UpdateFunc func(current *Entry) (*Entry, error)

// Backend stores entries by key. Implementations must be safe for concurrent use
// and must never hand out entries that alias their internal state.
type Backend interface {
	// Get returns the entry for key, or ErrCacheMiss.
	Get(ctx context.Context, key QueryKey) (*Entry, error)

	// Set stores entry. An entry that is already expired removes the key.
	Set(ctx context.Context, key QueryKey, entry *Entry) error

	// Update applies fn atomically and returns the entry as it was before
	// fn ran (nil on a miss).
	Update(ctx context.Context, key QueryKey, fn UpdateFunc) (*Entry, error)

	// Delete removes the entry for key.
	Delete(ctx context.Context, key QueryKey) error
}
