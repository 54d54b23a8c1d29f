package navigation

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/luyandamncube/openclaw-mission-control/pkg/logging"
)

type historyEntry struct {
	path     string
	rawQuery string
}

// History is an in-process browser history. It backs list views that are
// driven without a browser (CLI, tests) and mirrors popstate semantics:
// subscribers are notified on Back and Forward only, never on Push or
// Replace.
type History struct {
	logger zerolog.Logger

	mu        sync.Mutex
	entries   []historyEntry
	index     int
	listeners map[int]func()
	nextID    int
}

// NewHistory creates a history whose only entry is initial.
func NewHistory(initial string) *History {
	path, rawQuery := splitTarget(initial, "/")
	return &History{
		logger:    logging.NewLogger(logging.ComponentHistory),
		entries:   []historyEntry{{path: path, rawQuery: rawQuery}},
		listeners: make(map[int]func()),
	}
}

// Push adds target after the current entry and drops any forward entries.
func (h *History) Push(target string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	path, rawQuery := splitTarget(target, h.entries[h.index].path)
	h.entries = append(h.entries[:h.index+1], historyEntry{path: path, rawQuery: rawQuery})
	h.index++
	h.logger.Debug().Str("target", joinURL(path, rawQuery)).Int("len", len(h.entries)).Msg("Push")
}

// Replace overwrites the current entry.
func (h *History) Replace(target string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	path, rawQuery := splitTarget(target, h.entries[h.index].path)
	h.entries[h.index] = historyEntry{path: path, rawQuery: rawQuery}
	h.logger.Debug().Str("target", joinURL(path, rawQuery)).Msg("Replace")
}

// Back moves to the previous entry and notifies subscribers.
// It returns false at the start of history.
func (h *History) Back() bool {
	return h.move(-1)
}

// Forward moves to the next entry and notifies subscribers.
// It returns false at the end of history.
func (h *History) Forward() bool {
	return h.move(1)
}

func (h *History) move(delta int) bool {
	h.mu.Lock()
	next := h.index + delta
	if next < 0 || next >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.index = next

	listeners := make([]func(), 0, len(h.listeners))
	for id := 0; id < h.nextID; id++ {
		if fn, ok := h.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return true
}

// Path returns the current path.
func (h *History) Path() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index].path
}

// RawQuery returns the current query string without '?'.
func (h *History) RawQuery() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index].rawQuery
}

// URL returns the current path and query.
func (h *History) URL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := h.entries[h.index]
	return joinURL(e.path, e.rawQuery)
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Subscribe registers fn for Back and Forward. Subscribers run in
// registration order, outside the history lock.
func (h *History) Subscribe(fn func()) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.listeners[id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}
