package schema

import "github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"

// CacheBuilderOption is a functional option applied to a Cache during construction via NewCache.
type CacheBuilderOption func(*cache)

// WithReflector sets the reflector used for cache misses.
//
// Parameters:
//   - r: the reflector
//
// Returns:
//   - CacheBuilderOption: a function that applies the reflector to a cache
func WithReflector(r reflection.Reflector) CacheBuilderOption {
	return func(c *cache) {
		c.reflector = r
	}
}

// WithCacheSlotGapPolicy sets the gap policy of every schema the cache builds.
func WithCacheSlotGapPolicy(policy SlotGapPolicy) CacheBuilderOption {
	return func(c *cache) {
		c.policy = policy
	}
}

// WithReflectionWorkers sets how many workers reflect stages concurrently.
func WithReflectionWorkers(n int) CacheBuilderOption {
	return func(c *cache) {
		c.workers = n
	}
}
