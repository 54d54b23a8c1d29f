package sortstate

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/luyandamncube/openclaw-mission-control/internal/urlquery"
	"github.com/luyandamncube/openclaw-mission-control/pkg/logging"
)

// Location is the navigation the controller reads from and writes to.
// navigation.History and navigation.RequestLocation implement it.
type Location interface {
	// Path returns the current path without query.
	Path() string

	// RawQuery returns the current query string without the leading '?'.
	RawQuery() string

	// Replace navigates to pathWithQuery without creating a history entry.
	Replace(pathWithQuery string)

	// Subscribe registers fn for location changes made outside the
	// controller (back/forward) and returns a function that removes it.
	Subscribe(fn func()) (unsubscribe func())
}

// Config configures a Controller.
type Config struct {
	// Columns is the allow-list of sortable column ids.
	Columns []string

	// Default is used when the URL carries no sort parameter.
	// It is normalized against Columns.
	Default []Sort

	// Prefix namespaces the parameters: {Prefix}_sort and {Prefix}_dir.
	// Empty means plain "sort" and "dir".
	Prefix string

	// OnChange runs after Resync when the derived sort state changed.
	OnChange func(sorting []Sort)

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// Controller keeps a list's sort state in the URL query string.
//
// Reading derives the state from the held query and never fails. Writing
// rewrites only the controller's two parameters and replaces the current
// location; every other parameter is kept exactly as it was.
type Controller struct {
	loc       Location
	columns   []string
	def       []Sort
	sortParam string
	dirParam  string
	onChange  func([]Sort)
	logger    zerolog.Logger

	mu          sync.Mutex
	query       urlquery.Query
	unsubscribe func()
}

// New creates a controller bound to loc and subscribes it to external
// location changes.
func New(loc Location, cfg Config) (*Controller, error) {
	if loc == nil {
		return nil, errors.New("location is required")
	}
	for _, column := range cfg.Columns {
		if column == SentinelNone {
			return nil, ErrReservedColumn
		}
	}

	sortParam, dirParam := ParamNames(cfg.Prefix)

	logger := logging.NewLogger(logging.ComponentSort).With().Str("param", sortParam).Logger()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("param", sortParam).Logger()
	}

	c := &Controller{
		loc:       loc,
		columns:   append([]string(nil), cfg.Columns...),
		def:       Normalize(cfg.Default, cfg.Columns),
		sortParam: sortParam,
		dirParam:  dirParam,
		onChange:  cfg.OnChange,
		logger:    logger,
		query:     urlquery.Parse(loc.RawQuery()),
	}
	c.unsubscribe = loc.Subscribe(c.Resync)
	return c, nil
}

// ParamNames returns the sort and direction parameter names for prefix.
func ParamNames(prefix string) (sortParam, dirParam string) {
	if prefix == "" {
		return "sort", "dir"
	}
	return prefix + "_sort", prefix + "_dir"
}

// Default returns the normalized default sort state.
func (c *Controller) Default() []Sort {
	return append([]Sort(nil), c.def...)
}

// Sorting returns the sort state encoded in the current query.
func (c *Controller) Sorting() []Sort {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.derive(c.query)
}

func (c *Controller) derive(q urlquery.Query) []Sort {
	column, ok := q.Get(c.sortParam)
	if !ok {
		return c.Default()
	}
	if column == SentinelNone {
		return nil
	}
	if !c.allowed(column) {
		return c.Default()
	}

	dir, _ := q.Get(c.dirParam)
	return []Sort{{ColumnID: column, Descending: dir == DirDesc}}
}

func (c *Controller) allowed(column string) bool {
	for _, allowed := range c.columns {
		if allowed == column {
			return true
		}
	}
	return false
}

// SetSorting normalizes next and, unless it equals the current state,
// replaces the location with the rewritten query. It reports whether a
// navigation happened.
func (c *Controller) SetSorting(next []Sort) bool {
	normalized := Normalize(next, c.columns)

	c.mu.Lock()
	if Equal(normalized, c.derive(c.query)) {
		c.mu.Unlock()
		c.logger.Debug().Interface("sorting", normalized).Msg("Sort unchanged, no navigation")
		return false
	}

	q := c.rewrite(c.query, normalized)
	c.query = q
	c.mu.Unlock()

	target := urlquery.JoinPath(c.loc.Path(), q)
	c.logger.Debug().Str("target", target).Msg("Replacing location")
	c.loc.Replace(target)
	return true
}

// Href returns the location SetSorting(next) would navigate to, without
// navigating. When next equals the current state it is the current location.
func (c *Controller) Href(next []Sort) string {
	normalized := Normalize(next, c.columns)

	c.mu.Lock()
	q := c.query
	if !Equal(normalized, c.derive(q)) {
		q = c.rewrite(q, normalized)
	}
	c.mu.Unlock()

	return urlquery.JoinPath(c.loc.Path(), q)
}

func (c *Controller) rewrite(current urlquery.Query, next []Sort) urlquery.Query {
	q := current.Clone()
	switch {
	case len(next) == 0:
		q.Set(c.sortParam, SentinelNone)
		q.Del(c.dirParam)
	case Equal(next, c.def):
		q.Del(c.sortParam)
		q.Del(c.dirParam)
	default:
		q.Set(c.sortParam, next[0].ColumnID)
		q.Set(c.dirParam, next[0].Direction())
	}
	return q
}

// Resync re-reads the query from the location. It is subscribed to external
// location changes and can also be called directly.
func (c *Controller) Resync() {
	raw := c.loc.RawQuery()

	c.mu.Lock()
	previous := c.derive(c.query)
	c.query = urlquery.Parse(raw)
	current := c.derive(c.query)
	c.mu.Unlock()

	if Equal(previous, current) {
		return
	}
	c.logger.Debug().Interface("sorting", current).Msg("Location changed externally")
	if c.onChange != nil {
		c.onChange(current)
	}
}

// Close stops listening for location changes.
func (c *Controller) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
