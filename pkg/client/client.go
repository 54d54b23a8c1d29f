// Package client provides the Mission Control REST client with a shared
// list cache, rate limiting, retries and error handling.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/luyandamncube/openclaw-mission-control/pkg/cache"
	"github.com/luyandamncube/openclaw-mission-control/pkg/logging"
	"github.com/luyandamncube/openclaw-mission-control/pkg/ratelimit"
)

// Client is the Mission Control API client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	retry       RetryConfig
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the Mission Control backend (e.g. "http://localhost:8000")
	BaseURL string

	// Token is sent as a bearer token when set
	Token string

	// UserAgent header
	UserAgent string

	// Timeout per HTTP attempt
	Timeout time.Duration

	// CacheTTL is used when responses carry no freshness headers
	CacheTTL time.Duration

	// Cache is the shared list cache. When nil one is built on Redis if
	// configured, otherwise in memory.
	Cache *cache.Manager

	// Redis backs the list cache and the shared rate limit state (optional)
	Redis *redis.Client

	// Retry
	MaxRetries     int // retries after the first attempt
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		UserAgent:      "mission-control-web/1.0",
		Timeout:        30 * time.Second,
		CacheTTL:       cache.DefaultTTL,
		MaxRetries:     2,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// New creates a new Mission Control client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, fmt.Errorf("base url must be http(s) (got %q)", cfg.BaseURL)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	defaults := DefaultConfig(cfg.BaseURL)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}

	logger := logging.NewLogger(logging.ComponentClient)

	cacheManager := cfg.Cache
	if cacheManager == nil {
		var backend cache.Backend = cache.NewMemoryBackend()
		if cfg.Redis != nil {
			backend = cache.NewRedisBackend(cfg.Redis)
		}
		cacheManager = cache.NewManager(backend)
	}

	retry := RetryConfig{
		MaxAttempts:       cfg.MaxRetries + 1,
		InitialBackoff:    cfg.InitialBackoff,
		MaxBackoff:        cfg.MaxBackoff,
		BackoffMultiplier: 2.0,
	}
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = defaults.InitialBackoff
	}
	if retry.MaxBackoff < retry.InitialBackoff {
		retry.MaxBackoff = retry.InitialBackoff
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: ratelimit.NewTracker(cfg.Redis, logging.NewLogger(logging.ComponentRateLimit)),
		cache:       cacheManager,
		config:      cfg,
		retry:       retry,
		logger:      logger,
	}, nil
}

// Do performs an HTTP request with authentication, rate limiting and
// retries. Server, network and rate limit failures are retried; other
// responses, 4xx included, are returned to the caller as is. The caller
// closes the body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := endpointLabel(req.URL.Path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing request")

	var resp *http.Response
	retryErr := retryWithBackoff(ctx, c.retry, func() (ErrorClass, error) {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}

		var reqErr error
		resp, reqErr = c.httpClient.Do(req.Clone(ctx))
		if reqErr != nil {
			c.logger.Warn().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			if ctx.Err() != nil {
				return "", reqErr
			}
			return ErrorClassNetwork, reqErr
		}

		if err := c.rateLimiter.UpdateFromResponse(ctx, resp); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		errClass := classifyStatus(resp.StatusCode)
		if errClass == "" {
			return "", nil
		}
		errorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("API request error")

		if !shouldRetry(errClass) {
			// Let the caller handle the status
			return "", nil
		}

		apiErr := newAPIError(resp)
		resp.Body.Close()
		resp = nil
		return errClass, apiErr
	})

	if retryErr != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, retryErr
	}
	return resp, nil
}

// List returns the cached page for key, fetching it when the cached entry is
// missing, stale or expired. Stale entries with an ETag are revalidated with
// a conditional request. Responses below 500 are cached, errors included.
func (c *Client) List(ctx context.Context, key cache.QueryKey) (*cache.Entry, error) {
	return c.cache.Fetch(ctx, key, func(ctx context.Context, current *cache.Entry) (*cache.Entry, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, key.URL(c.config.BaseURL), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		cache.AddConditionalHeaders(req, current)

		resp, err := c.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotModified && current != nil {
			c.logger.Debug().Str("key", key.String()).Msg("304 Not Modified - using cache")
			return cache.Revalidate(current, resp, c.config.CacheTTL), nil
		}

		entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
		if err != nil {
			return nil, err
		}
		c.logger.Debug().
			Str("key", key.String()).
			Int("status", entry.StatusCode).
			Dur("ttl", entry.TTL()).
			Msg("Cached response")
		return entry, nil
	})
}

// Delete sends DELETE for path (relative to the base URL). Any non-2xx
// response is returned as *APIError.
func (c *Client) Delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}
	return nil
}

// Cache returns the list cache shared with mutation coordinators.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// RateLimiter returns the rate limit tracker.
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
