package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigForErrorClass derives the retry configuration for an error
// class from base.
func RetryConfigForErrorClass(errorClass ErrorClass, base RetryConfig) RetryConfig {
	cfg := base
	switch errorClass {
	case ErrorClassRateLimit:
		// The rate limit gate already waits out Retry-After; back off harder on top.
		cfg.InitialBackoff = base.InitialBackoff * 5
		cfg.MaxBackoff = base.MaxBackoff * 2
	case ErrorClassNetwork:
		cfg.InitialBackoff = base.InitialBackoff * 2
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = 1
	}
	return cfg
}

// attemptFunc performs one attempt and classifies its failure.
type attemptFunc func() (ErrorClass, error)

// retryWithBackoff executes fn with exponential backoff retry logic.
// The backoff schedule follows the class of the first failure. It respects
// context cancellation and adds jitter to prevent thundering herd.
func retryWithBackoff(ctx context.Context, base RetryConfig, fn attemptFunc) error {
	var (
		lastErr    error
		errorClass ErrorClass
		config     RetryConfig
		backoff    time.Duration
	)

	for attempt := 1; ; attempt++ {
		class, err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("error_class", string(errorClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !shouldRetry(class) {
			return lastErr
		}

		if attempt == 1 {
			errorClass = class
			config = RetryConfigForErrorClass(class, base)
			backoff = config.InitialBackoff
		}

		if attempt >= config.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(string(class)).Inc()

		// Add jitter (±20% randomness)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		retryBackoffSeconds.WithLabelValues(string(class)).Observe(jitter.Seconds())

		log.Debug().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			log.Warn().
				Str("error_class", string(class)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	retryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	log.Warn().
		Str("error_class", string(errorClass)).
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
