package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	mcRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mc_rate_limit_remaining",
		Help: "Request budget reported by the Mission Control API",
	})

	mcRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mc_rate_limit_blocks_total",
		Help: "Total number of requests blocked by Retry-After",
	})

	mcRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mc_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to a low request budget",
	})
)

// stateTTL bounds how long shared state outlives its last update in Redis.
const stateTTL = 10 * time.Minute

// Tracker records rate limit signals and gates requests.
// With a nil Redis client the state is kept in process.
type Tracker struct {
	redis    *redis.Client
	logger   zerolog.Logger
	throttle time.Duration

	mu    sync.Mutex
	local State
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:    redisClient,
		logger:   logger,
		throttle: 1 * time.Second,
		local:    *NewState(),
	}
}

// SetThrottleDelay changes the pause applied while the budget is low.
func (t *Tracker) SetThrottleDelay(d time.Duration) {
	t.throttle = d
}

// GetState returns the current state. A tracker that has seen no signal
// reports an unblocked state with unknown budget.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		state := t.local
		return &state, nil
	}

	pipe := t.redis.Pipeline()
	blockedCmd := pipe.Get(ctx, RedisKeyBlockedUntil)
	remainingCmd := pipe.Get(ctx, RedisKeyRemaining)
	updatedCmd := pipe.Get(ctx, RedisKeyLastUpdate)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	state := NewState()

	blockedMillis, err := blockedCmd.Int64()
	switch {
	case err == nil:
		state.BlockedUntil = time.UnixMilli(blockedMillis)
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get blocked until: %w", err)
	}

	remaining, err := remainingCmd.Int()
	switch {
	case err == nil:
		state.Remaining = remaining
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	updatedMillis, err := updatedCmd.Int64()
	switch {
	case err == nil:
		state.LastUpdate = time.UnixMilli(updatedMillis)
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get last update: %w", err)
	}

	return state, nil
}

// UpdateFromResponse records the rate limit signals of resp.
func (t *Tracker) UpdateFromResponse(ctx context.Context, resp *http.Response) error {
	if resp == nil {
		return nil
	}
	return t.UpdateFromHeaders(ctx, resp.StatusCode, resp.Header)
}

// UpdateFromHeaders records X-RateLimit-Remaining and, for 429 and 503,
// Retry-After. Responses carrying neither leave the state untouched.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, status int, headers http.Header) error {
	now := time.Now()

	remaining := UnknownRemaining
	if value := headers.Get(HeaderRemaining); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
		}
		remaining = n
	}

	var blockedUntil time.Time
	if blocksRequests(status) {
		wait, ok := ParseRetryAfter(headers.Get(HeaderRetryAfter), now)
		if !ok {
			wait = DefaultRetryAfter
		}
		blockedUntil = now.Add(wait)
	}

	if remaining == UnknownRemaining && blockedUntil.IsZero() {
		return nil
	}

	if err := t.store(ctx, blockedUntil, remaining, now); err != nil {
		return err
	}

	if remaining != UnknownRemaining {
		mcRateLimitRemaining.Set(float64(remaining))
	}

	switch {
	case !blockedUntil.IsZero():
		t.logger.Warn().
			Int("status", status).
			Time("blocked_until", blockedUntil).
			Msg("API asked to back off - requests will be blocked")
	case remaining < RemainingThresholdWarning:
		t.logger.Warn().
			Int("remaining", remaining).
			Msg("Request budget low - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remaining).
			Msg("Rate limit state updated")
	}

	return nil
}

func (t *Tracker) store(ctx context.Context, blockedUntil time.Time, remaining int, now time.Time) error {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if !blockedUntil.IsZero() && blockedUntil.After(t.local.BlockedUntil) {
			t.local.BlockedUntil = blockedUntil
		}
		if remaining != UnknownRemaining {
			t.local.Remaining = remaining
		}
		t.local.LastUpdate = now
		return nil
	}

	if !blockedUntil.IsZero() {
		current, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
		if err == nil && current >= blockedUntil.UnixMilli() {
			blockedUntil = time.Time{}
		}
	}

	pipe := t.redis.TxPipeline()
	if !blockedUntil.IsZero() {
		pipe.Set(ctx, RedisKeyBlockedUntil, blockedUntil.UnixMilli(), stateTTL)
	}
	if remaining != UnknownRemaining {
		pipe.Set(ctx, RedisKeyRemaining, remaining, stateTTL)
	}
	pipe.Set(ctx, RedisKeyLastUpdate, now.UnixMilli(), stateTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// ShouldAllowRequest checks whether a request may be sent now.
// Returns false while a Retry-After block is active. Returns true but
// sleeps for the throttle delay while the budget is low.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.IsBlocked() {
		t.logger.Warn().
			Dur("wait_duration", state.TimeUntilUnblock()).
			Msg("Rate limited - blocking request")
		mcRateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() && t.throttle > 0 {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Request budget low - throttling request")
		mcRateLimitThrottlesTotal.Inc()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttle):
		}
	}

	return true, nil
}

// Wait blocks until requests are allowed or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	for {
		allowed, err := t.ShouldAllowRequest(ctx)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		state, err := t.GetState(ctx)
		if err != nil {
			return fmt.Errorf("get rate limit state: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(state.TimeUntilUnblock()):
		}
	}
}
