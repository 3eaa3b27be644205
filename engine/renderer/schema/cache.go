package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
)

// StageSource is one shader stage's blob handed to the cache.
type StageSource struct {
	Stage reflection.Stage
	Blob  []byte
}

// CacheStats reports cache occupancy and effectiveness.
type CacheStats struct {
	Entries int
	Hits    int
	Misses  int
}

// Cache builds schemas from shader blobs and returns the same Schema for identical inputs.
// Stage reflection of a miss runs on a worker pool, one task per stage.
type Cache interface {
	// Get returns the schema for the given stage blobs, building it on the first request.
	//
	// Parameters:
	//   - label: the debug label used when the schema is built
	//   - sources: one blob per stage; order does not matter
	//
	// Returns:
	//   - Schema: the cached or newly built schema
	//   - error: a reflection or build error; failures are not cached
	Get(label string, sources ...StageSource) (Schema, error)

	// Stats returns the cache's current statistics.
	Stats() CacheStats

	// Clear drops every cached schema. Resource sets created from them stay valid.
	Clear()

	// Close stops the reflection workers and drops every cached schema. Get fails with
	// ErrCacheClosed afterwards. Calling Close more than once is a no-op.
	Close()
}

// cache implements the Cache interface.
type cache struct {
	mu *sync.Mutex

	reflector reflection.Reflector
	policy    SlotGapPolicy
	workers   int
	pool      worker.DynamicWorkerPool

	entries map[uint64]Schema
	hits    int
	misses  int
	closed  bool
}

var _ Cache = &cache{}

// NewCache creates a schema cache. Without options it reflects with reflection.NewReflector(),
// uses the default slot gap policy and runs 4 reflection workers.
//
// Parameters:
//   - options: variadic list of CacheBuilderOption functions
//
// Returns:
//   - Cache: the newly created cache
func NewCache(options ...CacheBuilderOption) Cache {
	c := &cache{
		mu:      &sync.Mutex{},
		policy:  SlotGapRepeatPrevious,
		workers: 4,
		entries: make(map[uint64]Schema),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.reflector == nil {
		c.reflector = reflection.NewReflector()
	}
	if c.workers < 1 {
		c.workers = 1
	}
	c.pool = worker.NewDynamicWorkerPool(c.workers, 256, 1*time.Second)
	return c
}

func (c *cache) Get(label string, sources ...StageSource) (Schema, error) {
	sorted := append([]StageSource(nil), sources...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Stage < sorted[j].Stage
	})
	key := c.key(sorted)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrCacheClosed
	}
	if s, ok := c.entries[key]; ok {
		c.hits++
		common.Logger().Debug("schema cache hit", "label", label, "key", key)
		return s, nil
	}
	c.misses++

	refls, err := c.reflectAll(sorted)
	if err != nil {
		return nil, err
	}

	options := []SchemaBuilderOption{WithLabel(label), WithSlotGapPolicy(c.policy)}
	for _, r := range refls {
		options = append(options, WithStage(r))
	}
	s, err := NewSchema(options...)
	if err != nil {
		return nil, err
	}
	c.entries[key] = s
	common.Logger().Debug("schema cache miss", "label", label, "key", key, "entries", len(c.entries))
	return s, nil
}

// key hashes the stage-tagged blobs together with the gap policy, which changes the built tables.
func (c *cache) key(sorted []StageSource) uint64 {
	parts := make([][]byte, 0, 2*len(sorted)+1)
	for _, src := range sorted {
		parts = append(parts, []byte{byte(src.Stage)}, src.Blob)
	}
	parts = append(parts, []byte{byte(c.policy)})
	return common.ContentHash(parts...)
}

// reflectAll reflects every source on the worker pool and waits for all of them.
func (c *cache) reflectAll(sources []StageSource) ([]*reflection.StageReflection, error) {
	refls := make([]*reflection.StageReflection, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		c.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				refls[i], errs[i] = c.reflector.Reflect(src.Stage, src.Blob)
				return refls[i], errs[i]
			},
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("reflect stages: %w", err)
	}
	return refls, nil
}

func (c *cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}

func (c *cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.pool.Stop()
	clear(c.entries)
	common.Logger().Debug("schema cache closed", "hits", c.hits, "misses", c.misses)
}
