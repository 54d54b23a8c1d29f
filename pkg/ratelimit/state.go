// Package ratelimit gates requests to the Mission Control API after it
// signals overload. It records Retry-After from 429 and 503 responses and
// the X-RateLimit-Remaining budget, and blocks or throttles requests until
// the server is ready again.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyBlockedUntil = "mc:rate_limit:blocked_until"
	RedisKeyRemaining    = "mc:rate_limit:remaining"
	RedisKeyLastUpdate   = "mc:rate_limit:last_update"
)

// Response headers read by the tracker.
const (
	HeaderRetryAfter = "Retry-After"
	HeaderRemaining  = "X-RateLimit-Remaining"
)

// Thresholds for rate limit decisions.
const (
	// RemainingThresholdWarning applies throttling when the remaining request
	// budget falls below this value.
	RemainingThresholdWarning = 5

	// MaxRetryAfter caps how long a single Retry-After may block requests.
	MaxRetryAfter = 5 * time.Minute

	// DefaultRetryAfter is used for 429/503 responses without a usable header.
	DefaultRetryAfter = 1 * time.Second
)

// UnknownRemaining marks a state without a remaining-budget header.
const UnknownRemaining = -1

// State is the current rate limit state. It is shared across client
// instances through Redis when one is configured.
type State struct {
	// BlockedUntil is when requests may be sent again. Zero means never blocked.
	BlockedUntil time.Time `json:"blocked_until"`

	// Remaining is the server-reported request budget, or UnknownRemaining.
	Remaining int `json:"remaining"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// NewState returns an unblocked state with unknown budget.
func NewState() *State {
	return &State{Remaining: UnknownRemaining, LastUpdate: time.Now()}
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsBlocked reports whether requests must wait.
func (s *State) IsBlocked() bool {
	return time.Now().Before(s.BlockedUntil)
}

// NeedsThrottling reports whether the budget is low but not exhausted.
func (s *State) NeedsThrottling() bool {
	return s.Remaining != UnknownRemaining && s.Remaining < RemainingThresholdWarning && !s.IsBlocked()
}

// TimeUntilUnblock returns how long requests are still blocked.
// Returns 0 if they are not.
func (s *State) TimeUntilUnblock() time.Duration {
	d := time.Until(s.BlockedUntil)
	if d < 0 {
		return 0
	}
	return d
}

// IsHealthy reports whether requests flow without restriction.
func (s *State) IsHealthy() bool {
	return !s.IsBlocked() && !s.NeedsThrottling()
}

// ParseRetryAfter parses a Retry-After value given as delay seconds or an
// HTTP date, relative to now. The result is clamped to [0, MaxRetryAfter].
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	var d time.Duration
	if seconds, err := strconv.Atoi(value); err == nil {
		d = time.Duration(seconds) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		d = at.Sub(now)
	} else {
		return 0, false
	}

	if d < 0 {
		d = 0
	}
	if d > MaxRetryAfter {
		d = MaxRetryAfter
	}
	return d, true
}

// blocksRequests reports whether status asks the client to back off.
func blocksRequests(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}
