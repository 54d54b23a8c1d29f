package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is the fallback TTL when the response carries no freshness headers
	DefaultTTL = 5 * time.Minute
)

// ResponseToEntry converts an HTTP response to an Entry.
// The response body is restored after reading.
func ResponseToEntry(resp *http.Response, ttl time.Duration) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	var body []byte
	if resp.Body != nil {
		var err error
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		resp.Body.Close()
	}

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := time.Now()
	return &Entry{
		StatusCode: resp.StatusCode,
		Data:       body,
		ETag:       resp.Header.Get("ETag"),
		Expires:    parseExpires(resp.Header, now, ttl),
		CachedAt:   now,
	}, nil
}

// Revalidate refreshes entry after a 304 Not Modified response.
func Revalidate(entry *Entry, resp *http.Response, ttl time.Duration) *Entry {
	now := time.Now()
	next := entry.Clone()
	next.Stale = false
	next.CachedAt = now
	next.Expires = parseExpires(resp.Header, now, ttl)
	if etag := resp.Header.Get("ETag"); etag != "" {
		next.ETag = etag
	}
	NotModifiedResponses.Inc()
	return next
}

// AddConditionalHeaders adds If-None-Match to req when entry carries an ETag.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry == nil || req == nil || entry.ETag == "" {
		return
	}
	req.Header.Set("If-None-Match", entry.ETag)
}

// parseExpires derives the expiry from Cache-Control max-age, then Expires,
// then falls back to now+ttl (DefaultTTL when ttl is not positive).
func parseExpires(headers http.Header, now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	for _, directive := range strings.Split(headers.Get("Cache-Control"), ",") {
		directive = strings.TrimSpace(directive)
		if v, ok := strings.CutPrefix(directive, "max-age="); ok {
			if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
				return now.Add(time.Duration(seconds) * time.Second)
			}
		}
	}

	if expiresStr := headers.Get("Expires"); expiresStr != "" {
		if expires, err := http.ParseTime(expiresStr); err == nil {
			if expires.Before(now) {
				return now
			}
			return expires
		}
	}

	return now.Add(ttl)
}
