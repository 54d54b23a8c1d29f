// Package urlquery edits raw URL query strings while keeping every parameter
// it does not touch exactly as it was written.
//
// url.Values cannot be used for this: Encode sorts keys and re-escapes
// values, so an unrelated "?b=2&a=%7e" would come back as "?a=~&b=2".
package urlquery

import (
	"net/url"
	"strings"
)

type pair struct {
	raw   string
	key   string
	value string
}

// Query is a query string split into its '&' separated pairs, in order.
// The zero value is an empty query.
type Query struct {
	pairs []pair
}

// Parse splits raw (without the leading '?') into pairs. It never fails:
// pairs that do not decode are kept verbatim and matched by their raw key.
func Parse(raw string) Query {
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return Query{}
	}

	segments := strings.Split(raw, "&")
	q := Query{pairs: make([]pair, 0, len(segments))}
	for _, segment := range segments {
		q.pairs = append(q.pairs, parsePair(segment))
	}
	return q
}

func parsePair(segment string) pair {
	rawKey, rawValue, _ := strings.Cut(segment, "=")
	return pair{raw: segment, key: unescape(rawKey), value: unescape(rawValue)}
}

func unescape(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// Get returns the decoded value of the first pair named key.
func (q Query) Get(key string) (string, bool) {
	for _, p := range q.pairs {
		if p.raw != "" && p.key == key {
			return p.value, true
		}
	}
	return "", false
}

// Has reports whether a pair named key exists.
func (q Query) Has(key string) bool {
	_, ok := q.Get(key)
	return ok
}

// Set replaces the first pair named key in place and drops later pairs with
// the same name. When key is absent the pair is appended.
func (q *Query) Set(key, value string) {
	next := pair{
		raw:   url.QueryEscape(key) + "=" + url.QueryEscape(value),
		key:   key,
		value: value,
	}

	out := q.pairs[:0:0]
	replaced := false
	for _, p := range q.pairs {
		if p.raw == "" || p.key != key {
			out = append(out, p)
			continue
		}
		if !replaced {
			out = append(out, next)
			replaced = true
		}
	}
	if !replaced {
		out = append(out, next)
	}
	q.pairs = out
}

// Del removes every pair named key.
func (q *Query) Del(key string) {
	out := q.pairs[:0:0]
	for _, p := range q.pairs {
		if p.raw != "" && p.key == key {
			continue
		}
		out = append(out, p)
	}
	q.pairs = out
}

// Clone returns an independent copy.
func (q Query) Clone() Query {
	return Query{pairs: append([]pair(nil), q.pairs...)}
}

// Len returns the number of pairs, empty segments included.
func (q Query) Len() int {
	return len(q.pairs)
}

// Encode joins the pairs back into a query string without a leading '?'.
// Untouched pairs are emitted byte-for-byte as parsed.
func (q Query) Encode() string {
	if len(q.pairs) == 0 {
		return ""
	}
	raws := make([]string, len(q.pairs))
	for i, p := range q.pairs {
		raws[i] = p.raw
	}
	return strings.Join(raws, "&")
}

// String is Encode.
func (q Query) String() string {
	return q.Encode()
}

// JoinPath appends the query to path, omitting '?' when the query is empty.
func JoinPath(path string, q Query) string {
	encoded := q.Encode()
	if encoded == "" {
		return path
	}
	return path + "?" + encoded
}
