// Package cache provides an optional Redis-backed response cache for
// single-entity API reads (GET /systemusers/{id}, GET /systems/{id}).
//
// Paginated list fetches are never cached: the total count announced by the
// first page must match the pages that follow, and a cached first page could
// disagree with a live second page.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{Scope: clientID, Endpoint: "/systemusers/5f1b..."}
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then:
//		_ = manager.Set(ctx, key, cache.NewEntry(body, resp.StatusCode, 5*time.Minute))
//	}
//
// Keys are scoped by OAuth client id so two tenants sharing one Redis never
// read each other's records.
//
// # Metrics
//
//   - jam_cache_hits_total
//   - jam_cache_misses_total
//   - jam_cache_errors_total{operation}
package cache
