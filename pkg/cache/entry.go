package cache

import (
	"encoding/json"
	"net/http"
	"time"
)

// Entry represents the last known server response for a query key.
type Entry struct {
	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Data is the response body, kept verbatim
	Data json.RawMessage `json:"data"`

	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag,omitempty"`

	// Expires is when the entry becomes stale on its own
	Expires time.Time `json:"expires"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`

	// Stale is set by invalidation; the next Fetch goes to the server
	Stale bool `json:"stale,omitempty"`
}

// IsExpired returns true if the cache entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// IsFresh reports whether the entry can be served without refetching.
func (e *Entry) IsFresh() bool {
	return e != nil && !e.Stale && !e.IsExpired()
}

// IsOK reports whether the entry holds a 200 response.
func (e *Entry) IsOK() bool {
	return e != nil && e.StatusCode == http.StatusOK
}

// Clone returns a deep copy of the entry. A nil entry clones to nil.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	if e.Data != nil {
		c.Data = append(json.RawMessage(nil), e.Data...)
	}
	return &c
}
