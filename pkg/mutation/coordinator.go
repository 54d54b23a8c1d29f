package mutation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/luyandamncube/openclaw-mission-control/pkg/cache"
	"github.com/luyandamncube/openclaw-mission-control/pkg/logging"
)

const tracerName = "github.com/luyandamncube/openclaw-mission-control/pkg/mutation"

// Cache is the part of the list cache a coordinator needs.
// *cache.Manager implements it.
type Cache interface {
	Cancel(ctx context.Context, key cache.QueryKey) error
	Update(ctx context.Context, key cache.QueryKey, fn cache.UpdateFunc) (*cache.Entry, error)
	Write(ctx context.Context, key cache.QueryKey, entry *cache.Entry) error
	Invalidate(ctx context.Context, key cache.QueryKey) error
}

// Config configures a delete coordinator for list items of type T driven by
// mutation inputs of type In.
type Config[T any, In any] struct {
	// Cache is the shared list cache (required).
	Cache Cache

	// Key addresses the list the item is removed from (required).
	Key cache.QueryKey

	// ItemID returns the identity of a list item (required).
	ItemID func(item T) string

	// TargetID maps the mutation input to the identity to remove (required).
	TargetID func(input In) string

	// OnSuccess runs after the server confirmed the mutation. Optional.
	OnSuccess func()

	// InvalidateKeys are marked stale on settle. Empty means just Key.
	InvalidateKeys []cache.QueryKey

	// Resource labels metrics and logs. Defaults to Key.Resource.
	Resource string

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// Context carries the snapshot taken by Begin for a single mutation attempt.
type Context struct {
	// Previous is the entry exactly as it was before the optimistic write;
	// nil when nothing was cached.
	Previous *cache.Entry

	// Optimistic reports whether Begin rewrote the cache.
	Optimistic bool

	consumed bool
}

// Coordinator applies a delete to the cached list before the server confirms
// it, restores the snapshot if the server call fails, and invalidates the
// affected lists once the call settles.
type Coordinator[T any, In any] struct {
	cfg      Config[T, In]
	keys     []cache.QueryKey
	resource string
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// New validates cfg and returns a coordinator.
func New[T any, In any](cfg Config[T, In]) (*Coordinator[T, In], error) {
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if cfg.ItemID == nil {
		return nil, fmt.Errorf("item id accessor is required")
	}
	if cfg.TargetID == nil {
		return nil, fmt.Errorf("target id accessor is required")
	}

	keys := cfg.InvalidateKeys
	if len(keys) == 0 {
		keys = []cache.QueryKey{cfg.Key}
	}

	resource := cfg.Resource
	if resource == "" {
		resource = cfg.Key.Resource
	}

	logger := logging.NewLogger(logging.ComponentMutation).With().Str("resource", resource).Logger()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("resource", resource).Logger()
	}

	return &Coordinator[T, In]{
		cfg:      cfg,
		keys:     keys,
		resource: resource,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// Begin runs before the network call. It cancels in-flight fetches for the
// list, then removes the target item from the cached page in one atomic
// write. Entries that are missing, unreadable, not a 200, or not an
// {items, total} page are left alone; the returned Context is valid either way.
func (c *Coordinator[T, In]) Begin(ctx context.Context, input In) (*Context, error) {
	if err := c.cfg.Cache.Cancel(ctx, c.cfg.Key); err != nil {
		return nil, fmt.Errorf("cancel in-flight fetch: %w", err)
	}

	id := c.cfg.TargetID(input)

	var removed int
	var malformed bool
	previous, err := c.cfg.Cache.Update(ctx, c.cfg.Key, func(current *cache.Entry) (*cache.Entry, error) {
		removed, malformed = 0, false
		if !current.IsOK() {
			return nil, nil
		}

		data, n, ok := removeItem(current.Data, id, c.cfg.ItemID)
		if !ok {
			malformed = true
			return nil, nil
		}
		if n == 0 {
			return nil, nil
		}

		removed = n
		next := current.Clone()
		next.Data = data
		return next, nil
	})
	if errors.Is(err, cache.ErrInvalidEntry) {
		c.logger.Warn().Err(err).Str("key", c.cfg.Key.String()).Msg("Cached entry unreadable, skipping optimistic update")
		return &Context{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("optimistic update: %w", err)
	}

	event := c.logger.Debug().Str("key", c.cfg.Key.String()).Str("target", id)
	switch {
	case malformed:
		event.Msg("Cached payload is not a list page, skipping optimistic update")
	case removed > 0:
		optimisticWritesTotal.WithLabelValues(c.resource).Inc()
		event.Msg("Optimistically removed item")
	case previous == nil:
		event.Msg("Nothing cached, skipping optimistic update")
	default:
		event.Msg("Item not in cached page, nothing to remove")
	}

	return &Context{Previous: previous, Optimistic: removed > 0}, nil
}

// Rollback restores the snapshot held by mc. It runs at most once per
// Context and is a no-op when nothing was cached before Begin.
func (c *Coordinator[T, In]) Rollback(ctx context.Context, mc *Context) error {
	if mc == nil || mc.consumed || mc.Previous == nil {
		return nil
	}
	mc.consumed = true

	if err := c.cfg.Cache.Write(ctx, c.cfg.Key, mc.Previous); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}

	rollbacksTotal.WithLabelValues(c.resource).Inc()
	c.logger.Warn().Str("key", c.cfg.Key.String()).Msg("Mutation failed, restored cached list")
	return nil
}

// Succeed runs the configured success callback.
func (c *Coordinator[T, In]) Succeed() {
	if c.cfg.OnSuccess != nil {
		c.cfg.OnSuccess()
	}
}

// Settle marks every configured key stale so the next read refetches.
func (c *Coordinator[T, In]) Settle(ctx context.Context) error {
	var errs []error
	for _, key := range c.keys {
		if err := c.cfg.Cache.Invalidate(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Keys returns the keys invalidated on settle.
func (c *Coordinator[T, In]) Keys() []cache.QueryKey {
	return append([]cache.QueryKey(nil), c.keys...)
}

// Run drives one mutation attempt: Begin, the network call, then Rollback
// or Succeed, then Settle exactly once. It returns the error of the network
// call, or of Begin when the call was never sent.
func (c *Coordinator[T, In]) Run(ctx context.Context, input In, mutate func(ctx context.Context, input In) error) error {
	start := time.Now()
	target := c.cfg.TargetID(input)

	ctx, span := c.tracer.Start(ctx, "mutation.delete",
		trace.WithAttributes(
			attribute.String("mutation.resource", c.resource),
			attribute.String("mutation.key", c.cfg.Key.String()),
			attribute.String("mutation.target", target),
		),
	)
	defer span.End()

	outcome := OutcomeSuccess
	mc, err := c.Begin(ctx, input)
	if err != nil {
		outcome = OutcomeAborted
		c.logger.Error().Err(err).Str("target", target).Msg("Mutation aborted before send")
	} else {
		span.SetAttributes(attribute.Bool("mutation.optimistic", mc.Optimistic))
		if err = mutate(ctx, input); err != nil {
			outcome = OutcomeError
			if rbErr := c.Rollback(ctx, mc); rbErr != nil {
				c.logger.Error().Err(rbErr).Str("target", target).Msg("Rollback failed")
			}
		} else {
			c.Succeed()
		}
	}

	if settleErr := c.Settle(ctx); settleErr != nil {
		c.logger.Warn().Err(settleErr).Str("target", target).Msg("Invalidation after mutation failed")
		span.AddEvent("invalidate_failed")
	}

	mutationsTotal.WithLabelValues(c.resource, outcome).Inc()
	mutationDuration.WithLabelValues(c.resource).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	c.logger.Info().Str("target", target).Dur("duration", time.Since(start)).Msg("Mutation settled")
	return nil
}
