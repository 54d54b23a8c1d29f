package navigation

import (
	"net/http"
)

// RequestLocation is the location of a single HTTP request. A server has no
// history to rewrite, so Replace and Push record the target and Redirect
// sends it to the browser as 303 See Other.
type RequestLocation struct {
	path     string
	rawQuery string

	target string
	mode   Mode
	moved  bool
}

// NewRequestLocation creates a location for path and rawQuery.
func NewRequestLocation(path, rawQuery string) *RequestLocation {
	return &RequestLocation{path: path, rawQuery: rawQuery}
}

// FromRequest creates a location for the URL of r.
func FromRequest(r *http.Request) *RequestLocation {
	return NewRequestLocation(r.URL.Path, r.URL.RawQuery)
}

// Path returns the request path.
func (l *RequestLocation) Path() string { return l.path }

// RawQuery returns the request query string without '?'.
func (l *RequestLocation) RawQuery() string { return l.rawQuery }

// Replace records target as the next location.
func (l *RequestLocation) Replace(target string) { l.navigate(target, ModeReplace) }

// Push records target as the next location.
func (l *RequestLocation) Push(target string) { l.navigate(target, ModePush) }

func (l *RequestLocation) navigate(target string, mode Mode) {
	l.path, l.rawQuery = splitTarget(target, l.path)
	l.target = joinURL(l.path, l.rawQuery)
	l.mode = mode
	l.moved = true
}

// Subscribe is a no-op: a request never changes location from outside.
func (l *RequestLocation) Subscribe(func()) (unsubscribe func()) {
	return func() {}
}

// Target returns the recorded location and whether one was recorded.
func (l *RequestLocation) Target() (string, Mode, bool) {
	return l.target, l.mode, l.moved
}

// URL returns the current location.
func (l *RequestLocation) URL() string {
	return joinURL(l.path, l.rawQuery)
}

// Redirect answers r with 303 See Other to the current location.
func (l *RequestLocation) Redirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, l.URL(), http.StatusSeeOther)
}
