// Package pagination fetches every page of a limit/offset list endpoint in
// parallel.
//
// The Mission Control API pages lists as {items, total, limit, offset}. The
// first page tells the fetcher how many pages exist; the rest are spread
// across a worker pool.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(pagination.PageFetcherFunc(fetchPage), pagination.DefaultConfig())
//	results, err := fetcher.FetchAllPages(ctx, "agents")
//	for _, page := range pagination.Ordered(results) { ... }
//
// A failing page stops its worker and the call returns the pages fetched so
// far together with the error.
package pagination
