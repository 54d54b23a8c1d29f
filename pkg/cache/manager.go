package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/luyandamncube/openclaw-mission-control/pkg/logging"
)

// FetchFunc loads a fresh entry from the server. current is the cached
// entry (possibly stale) or nil, so implementations can revalidate it.
type FetchFunc func(ctx context.Context, current *Entry) (*Entry, error)

// Manager is the shared list cache. It layers in-flight fetch tracking,
// cancellation and staleness on top of a Backend.
//
// Every key carries a generation. Writes, cancellations and invalidations
// bump it; a fetch only commits its response when the generation it started
// with is still current, so a late response never overwrites a newer write.
type Manager struct {
	backend Backend
	logger  zerolog.Logger

	mu       sync.Mutex
	gens     map[string]uint64
	inflight map[string]*fetchCall
}

type fetchCall struct {
	cancel context.CancelFunc
	done   chan struct{}
	entry  *Entry
	err    error
}

// NewManager creates a new cache manager on top of backend.
func NewManager(backend Backend) *Manager {
	if backend == nil {
		panic("cache backend cannot be nil")
	}
	return &Manager{
		backend:  backend,
		logger:   logging.NewLogger(logging.ComponentCache),
		gens:     make(map[string]uint64),
		inflight: make(map[string]*fetchCall),
	}
}

// Read returns the cached entry for key, stale or not.
// Returns ErrCacheMiss if nothing is cached.
func (m *Manager) Read(ctx context.Context, key QueryKey) (*Entry, error) {
	return m.backend.Get(ctx, key)
}

// Write stores entry for key and supersedes any in-flight fetch.
func (m *Manager) Write(ctx context.Context, key QueryKey, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gens[key.String()]++
	return m.backend.Set(ctx, key, entry)
}

// Update atomically rewrites the entry for key and returns the entry as it
// was before fn ran. In-flight fetches are superseded only when fn writes.
func (m *Manager) Update(ctx context.Context, key QueryKey, fn UpdateFunc) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wrote := false
	previous, err := m.backend.Update(ctx, key, func(current *Entry) (*Entry, error) {
		next, err := fn(current)
		wrote = err == nil && next != nil
		return next, err
	})
	if err != nil {
		return nil, err
	}
	if wrote {
		m.gens[key.String()]++
	}
	return previous, nil
}

// Delete removes the entry for key.
func (m *Manager) Delete(ctx context.Context, key QueryKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gens[key.String()]++
	return m.backend.Delete(ctx, key)
}

// Cancel aborts the in-flight fetch for key, if any, and waits until it has
// returned. The fetch's response is discarded.
func (m *Manager) Cancel(ctx context.Context, key QueryKey) error {
	k := key.String()

	m.mu.Lock()
	m.gens[k]++
	call := m.inflight[k]
	m.mu.Unlock()

	if call == nil {
		return nil
	}

	m.logger.Debug().Str("key", k).Msg("Cancelling in-flight fetch")
	call.cancel()

	select {
	case <-call.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for cancelled fetch: %w", ctx.Err())
	}
}

// Invalidate marks the entry for key stale so the next Fetch goes to the
// server. A missing entry is left missing.
func (m *Manager) Invalidate(ctx context.Context, key QueryKey) error {
	k := key.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.gens[k]++
	_, err := m.backend.Update(ctx, key, func(current *Entry) (*Entry, error) {
		if current == nil || current.Stale {
			return nil, nil
		}
		current.Stale = true
		return current, nil
	})
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", k, err)
	}

	Invalidations.Inc()
	m.logger.Debug().Str("key", k).Msg("Marked stale")
	return nil
}

// InFlight reports whether a fetch for key is running.
func (m *Manager) InFlight(key QueryKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inflight[key.String()]
	return ok
}

// Fetch returns the cached entry for key when it is fresh. Otherwise it joins
// the fetch already running for key, or runs fn itself.
//
// When the fetch is superseded (Cancel, Write, Update or Invalidate on the
// same key while it runs) its response is dropped and the currently cached
// entry is returned instead; ErrFetchCancelled if there is none.
func (m *Manager) Fetch(ctx context.Context, key QueryKey, fn FetchFunc) (*Entry, error) {
	k := key.String()

	current, err := m.backend.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		m.logger.Warn().Err(err).Str("key", k).Msg("Cache read failed, fetching")
		current = nil
	}
	if current.IsFresh() {
		return current, nil
	}

	m.mu.Lock()
	if call, ok := m.inflight[k]; ok {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.entry.Clone(), call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	call := &fetchCall{cancel: cancel, done: make(chan struct{})}
	m.inflight[k] = call
	gen := m.gens[k]
	m.mu.Unlock()

	entry, fetchErr := fn(fetchCtx, current)
	cancel()

	m.mu.Lock()
	superseded := m.gens[k] != gen
	if !superseded && fetchErr == nil && entry != nil {
		if err := m.backend.Set(ctx, key, entry); err != nil {
			m.logger.Warn().Err(err).Str("key", k).Msg("Failed to cache response")
		}
	}
	delete(m.inflight, k)
	m.mu.Unlock()

	if superseded {
		FetchCancellations.Inc()
		m.logger.Debug().Str("key", k).Msg("Discarded superseded fetch")

		latest, err := m.backend.Get(ctx, key)
		if err != nil {
			entry, fetchErr = nil, ErrFetchCancelled
		} else {
			entry, fetchErr = latest, nil
		}
	}

	call.entry, call.err = entry, fetchErr
	close(call.done)

	return entry.Clone(), fetchErr
}
