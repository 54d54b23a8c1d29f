package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	layerRedis = "redis"

	// maxUpdateAttempts bounds WATCH/MULTI retries before ErrConflict
	maxUpdateAttempts = 5
)

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisBackend shares entries between processes through Redis.
// Entries are JSON encoded and expire with their Expires field.
type RedisBackend struct {
	redis *redis.Client
}

// NewRedisBackend creates a new cache backend on top of redisClient.
func NewRedisBackend(redisClient *redis.Client) *RedisBackend {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisBackend{
		redis: redisClient,
	}
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (b *RedisBackend) Get(ctx context.Context, key QueryKey) (*Entry, error) {
	entry, err := b.get(ctx, b.redis, key.String())
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			CacheMisses.WithLabelValues(layerRedis).Inc()
		} else {
			CacheErrors.WithLabelValues("get").Inc()
		}
		return nil, err
	}

	CacheHits.WithLabelValues(layerRedis).Inc()
	return entry, nil
}

// Set stores a cache entry with TTL based on the entry's Expires field.
func (b *RedisBackend) Set(ctx context.Context, key QueryKey, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	cacheKey := key.String()

	ttl := entry.TTL()
	if ttl <= 0 {
		return b.Delete(ctx, key)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := b.redis.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Update runs fn inside a WATCH/MULTI transaction on the key. fn may run
// more than once when another writer touches the key concurrently.
// An entry that does not decode is passed to fn as nil; if fn writes
// nothing the corrupt value is removed.
func (b *RedisBackend) Update(ctx context.Context, key QueryKey, fn UpdateFunc) (*Entry, error) {
	cacheKey := key.String()

	var previous *Entry
	txf := func(tx *redis.Tx) error {
		current, err := b.get(ctx, tx, cacheKey)
		corrupt := errors.Is(err, ErrInvalidEntry)
		if err != nil && !corrupt && !errors.Is(err, ErrCacheMiss) {
			return err
		}
		previous = current.Clone()

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			if corrupt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, cacheKey)
					return nil
				})
			}
			return err
		}

		ttl := next.TTL()
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal cache entry: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if ttl <= 0 {
				pipe.Del(ctx, cacheKey)
				return nil
			}
			pipe.Set(ctx, cacheKey, data, ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := b.redis.Watch(ctx, txf, cacheKey)
		if err == nil {
			return previous, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		CacheErrors.WithLabelValues("update").Inc()
		return nil, fmt.Errorf("redis update: %w", err)
	}

	CacheErrors.WithLabelValues("update").Inc()
	return nil, fmt.Errorf("%w: %s", ErrConflict, cacheKey)
}

// Delete removes a cache entry.
func (b *RedisBackend) Delete(ctx context.Context, key QueryKey) error {
	if err := b.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (b *RedisBackend) get(ctx context.Context, cmd getter, cacheKey string) (*Entry, error) {
	data, err := cmd.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		return nil, ErrCacheMiss
	}

	return &entry, nil
}
