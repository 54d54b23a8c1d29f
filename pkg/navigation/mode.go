package navigation

import "strings"

// Mode determines how a navigation is recorded in history.
type Mode int

const (
	// ModePush adds a new history entry.
	ModePush Mode = iota

	// ModeReplace replaces the current history entry (no back button spam).
	ModeReplace
)

func (m Mode) String() string {
	switch m {
	case ModePush:
		return "push"
	case ModeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Navigator is anything that can push or replace a location.
type Navigator interface {
	Push(target string)
	Replace(target string)
}

// Navigate sends target to n using mode.
func Navigate(n Navigator, target string, mode Mode) {
	if n == nil {
		return
	}
	if mode == ModeReplace {
		n.Replace(target)
		return
	}
	n.Push(target)
}

// splitTarget splits "path?query#fragment" into path and raw query. A target
// that starts with '?' keeps currentPath. The query is returned verbatim.
func splitTarget(target, currentPath string) (path, rawQuery string) {
	target, _, _ = strings.Cut(target, "#")
	path, rawQuery, _ = strings.Cut(target, "?")
	if path == "" {
		path = currentPath
	}
	return path, rawQuery
}

func joinURL(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
