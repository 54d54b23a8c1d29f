// Package cache provides the shared list cache for Mission Control clients.
//
// Entries are addressed by a QueryKey: a resource path plus its filter, sort
// and paging parameters. The key string is deterministic, so two keys built
// from the same parameters in a different order address the same entry.
//
// The Manager adds what list views need on top of a storage Backend:
//
//   - Fetch dedupes concurrent loads of the same key
//   - Cancel aborts an in-flight load and discards its late response
//   - Invalidate marks an entry stale so the next Fetch refetches
//   - Update performs an atomic read-modify-write
//
// # Basic Usage
//
//	manager := cache.NewManager(cache.NewMemoryBackend())
//
//	key := cache.QueryKey{
//		Resource: "/api/v1/agents",
//		Params:   url.Values{"limit": []string{"50"}},
//	}
//
//	entry, err := manager.Fetch(ctx, key, func(ctx context.Context, current *cache.Entry) (*cache.Entry, error) {
//		resp, err := httpClient.Do(req.WithContext(ctx))
//		if err != nil {
//			return nil, err
//		}
//		defer resp.Body.Close()
//		return cache.ResponseToEntry(resp, time.Minute)
//	})
//
// # Redis Backend
//
// NewRedisBackend shares entries between processes. Atomic updates use
// WATCH/MULTI transactions on the entry key.
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(cache.NewRedisBackend(redisClient))
//
// # Metrics
//
//   - mc_cache_hits_total{layer} - Cache hits by backend
//   - mc_cache_misses_total{layer} - Cache misses by backend
//   - mc_cache_errors_total{operation} - Backend operation errors
//   - mc_cache_invalidations_total - Entries marked stale
//   - mc_cache_fetch_cancellations_total - Fetch responses discarded
//   - mc_cache_not_modified_total - 304 revalidations
package cache
