package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// QueryKey identifies a cached server collection: a resource plus the
// filter, sort and paging parameters it was fetched with.
type QueryKey struct {
	// Resource is the API path template (e.g., "/api/v1/boards/{board_id}/tasks")
	Resource string

	// PathParams fill the placeholders of Resource (e.g., {"board_id": "..."})
	PathParams map[string]string

	// Params are the query parameters (e.g., {"limit": "50", "offset": "0"})
	Params url.Values
}

// String generates a deterministic cache key string.
// Parameter insertion order never changes the result.
// Format: mc:resource:path1=val1:query1=val1
//
// Example:
//
//	mc:api/v1/boards/{board_id}/tasks:board_id=42:limit=50:offset=0
func (k QueryKey) String() string {
	parts := []string{"mc"}

	resource := strings.Trim(k.Resource, "/")
	if resource != "" {
		parts = append(parts, resource)
	}

	if len(k.PathParams) > 0 {
		pathKeys := make([]string, 0, len(k.PathParams))
		for key := range k.PathParams {
			pathKeys = append(pathKeys, key)
		}
		sort.Strings(pathKeys)

		for _, key := range pathKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.PathParams[key]))
		}
	}

	if len(k.Params) > 0 {
		queryKeys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			values := k.Params[key]
			if len(values) == 0 {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(values, ",")))
		}
	}

	return strings.Join(parts, ":")
}

// Equal reports whether both keys address the same cache entry.
func (k QueryKey) Equal(other QueryKey) bool {
	return k.String() == other.String()
}

// Path expands the placeholders of Resource with PathParams.
// Unknown placeholders are left untouched.
func (k QueryKey) Path() string {
	path := k.Resource
	for name, value := range k.PathParams {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	return path
}

// URL joins baseURL, the expanded path and the encoded query parameters.
func (k QueryKey) URL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/") + k.Path()
	if len(k.Params) > 0 {
		u += "?" + k.Params.Encode()
	}
	return u
}

// WithParam returns a copy of the key with name set to value.
func (k QueryKey) WithParam(name, value string) QueryKey {
	params := url.Values{}
	for key, values := range k.Params {
		params[key] = append([]string(nil), values...)
	}
	params.Set(name, value)

	return QueryKey{
		Resource:   k.Resource,
		PathParams: k.PathParams,
		Params:     params,
	}
}
