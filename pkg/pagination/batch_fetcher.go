package pagination

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/luyandamncube/openclaw-mission-control/pkg/logging"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// Buffer size for channels (default: estimated total pages)
	BufferSize int
}

// DefaultConfig returns safe default configuration for the Mission Control API
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		BufferSize:     64,
	}
}

// PageFetcher fetches a single page. Pages are numbered from 1.
type PageFetcher interface {
	// FetchPage fetches a single page and returns data + total page count
	FetchPage(ctx context.Context, page int) (data []byte, totalPages int, err error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, page int) ([]byte, int, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, page int) ([]byte, int, error) {
	return f(ctx, page)
}

// PageResult represents the result of fetching a single page
type PageResult struct {
	PageNumber int
	Data       []byte
	Error      error
}

// BatchFetcher handles parallel fetching of multiple pages
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger(logging.ComponentPagination),
	}
}

// FetchAllPages fetches page 1 to learn the page count, then the remaining
// pages in parallel using a worker pool.
// Returns map of pageNumber -> data for successful pages; on a worker error
// the partial map is returned together with the error.
func (bf *BatchFetcher) FetchAllPages(ctx context.Context, name string) (map[int][]byte, error) {
	start := time.Now()

	firstPageData, totalPages, err := bf.fetcher.FetchPage(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	bf.logger.Debug().
		Str("list", name).
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	results := map[int][]byte{1: firstPageData}
	if totalPages <= 1 {
		return results, nil
	}

	pageQueue := make(chan int, bf.config.BufferSize)
	pageResults := make(chan PageResult, bf.config.BufferSize)
	errs := make(chan error, bf.config.MaxConcurrency)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Fill page queue (skip page 1, already fetched)
	go func() {
		defer close(pageQueue)
		for page := 2; page <= totalPages; page++ {
			select {
			case pageQueue <- page:
			case <-workerCtx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(workerCtx, pageQueue, pageResults, errs, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
		close(errs)
	}()

	for result := range pageResults {
		results[result.PageNumber] = result.Data
	}

	if err := <-errs; err != nil {
		bf.logger.Warn().
			Err(err).
			Int("fetched_pages", len(results)).
			Int("total_pages", totalPages).
			Msg("Worker error - returning partial results")
		return results, fmt.Errorf("worker error (partial data: %d/%d pages): %w", len(results), totalPages, err)
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	bf.logger.Debug().
		Str("list", name).
		Int("pages", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}

// worker processes pages from the queue
func (bf *BatchFetcher) worker(ctx context.Context, pageQueue <-chan int, results chan<- PageResult, errs chan<- error, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		if ctx.Err() != nil {
			return
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		data, _, err := bf.fetcher.FetchPage(pageCtx, pageNum)
		cancel()

		if err != nil {
			bf.logger.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("page", pageNum).
				Msg("Page fetch failed")

			select {
			case errs <- err:
			default:
			}
			return
		}

		select {
		case results <- PageResult{PageNumber: pageNum, Data: data}:
		case <-ctx.Done():
			return
		}

		pagesProcessed++
	}

	if pagesProcessed > 0 {
		bf.logger.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}

// TotalPages returns how many pages of pageSize cover total items.
// An empty collection still has one page.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= pageSize {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// Offset returns the limit/offset offset of page.
func Offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

// Ordered returns the pages of results in page order.
func Ordered(results map[int][]byte) [][]byte {
	pages := make([]int, 0, len(results))
	for page := range results {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	ordered := make([][]byte, 0, len(pages))
	for _, page := range pages {
		ordered = append(ordered, results[page])
	}
	return ordered
}
