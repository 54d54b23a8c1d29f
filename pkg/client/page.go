package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/luyandamncube/openclaw-mission-control/pkg/cache"
	"github.com/luyandamncube/openclaw-mission-control/pkg/pagination"
)

// Page is a limit/offset page of T.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DecodePage decodes a cached list entry. Entries with a status other than
// 200 are returned as *APIError.
func DecodePage[T any](entry *cache.Entry) (*Page[T], error) {
	if entry == nil {
		return nil, fmt.Errorf("decode page: %w", cache.ErrCacheMiss)
	}
	if !entry.IsOK() {
		apiErr := newAPIError(&http.Response{
			StatusCode: entry.StatusCode,
			Body:       nopBody(entry.Data),
		})
		return nil, apiErr
	}

	var page Page[T]
	if err := json.Unmarshal(entry.Data, &page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return &page, nil
}

// Fetch lists key through the cache and decodes the page.
func Fetch[T any](ctx context.Context, c *Client, key cache.QueryKey) (*Page[T], error) {
	entry, err := c.List(ctx, key)
	if err != nil {
		return nil, err
	}
	return DecodePage[T](entry)
}

// ListAll fetches every page of key's resource with pageSize items per page,
// in parallel, and returns the items in order. Each page is cached under its
// own key.
func ListAll[T any](ctx context.Context, c *Client, key cache.QueryKey, pageSize int) ([]T, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	pageKey := func(page int) cache.QueryKey {
		return key.
			WithParam("limit", strconv.Itoa(pageSize)).
			WithParam("offset", strconv.Itoa(pagination.Offset(page, pageSize)))
	}

	fetcher := pagination.NewBatchFetcher(pagination.PageFetcherFunc(func(ctx context.Context, page int) ([]byte, int, error) {
		entry, err := c.List(ctx, pageKey(page))
		if err != nil {
			return nil, 0, err
		}
		decoded, err := DecodePage[json.RawMessage](entry)
		if err != nil {
			return nil, 0, err
		}
		return entry.Data, pagination.TotalPages(decoded.Total, pageSize), nil
	}), pagination.DefaultConfig())

	results, err := fetcher.FetchAllPages(ctx, key.String())
	if err != nil {
		return nil, err
	}

	var items []T
	for _, data := range pagination.Ordered(results) {
		var page Page[T]
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}
