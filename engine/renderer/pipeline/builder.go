package pipeline

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/schema"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
)

// builder is the implementation of the Builder interface.
type builder struct {
	mu           *sync.Mutex
	cache        schema.Cache
	ownsCache    bool
	cacheOptions []schema.CacheBuilderOption
	pipelines    map[string]Pipeline
}

// Builder creates pipelines with their binding schema attached. Pipelines are deduplicated by key
// and schemas by stage content through the builder's schema cache, so pipelines sharing shader
// stages share one schema. Safe for concurrent use.
type Builder interface {
	// NewRenderPipeline returns the pipeline registered under key, creating it from vs and fs
	// on first use.
	//
	// Parameters:
	//   - key: the unique pipeline key
	//   - vs: the vertex shader
	//   - fs: the fragment shader, or nil for a depth-only pipeline
	//   - options: raster state options
	//
	// Returns:
	//   - Pipeline: the cached or created pipeline
	//   - error: a schema build error or a NewPipeline error
	NewRenderPipeline(key string, vs, fs shader.Shader, options ...PipelineBuilderOption) (Pipeline, error)

	// NewComputePipeline returns the pipeline registered under key, creating it from cs on first use.
	//
	// Parameters:
	//   - key: the unique pipeline key
	//   - cs: the compute shader
	//   - options: pipeline options
	//
	// Returns:
	//   - Pipeline: the cached or created pipeline
	//   - error: a schema build error or a NewPipeline error
	NewComputePipeline(key string, cs shader.Shader, options ...PipelineBuilderOption) (Pipeline, error)

	// Pipeline returns the pipeline created under key, or nil.
	Pipeline(key string) Pipeline

	// Cache returns the schema cache the builder draws schemas from.
	Cache() schema.Cache

	// Close forgets every pipeline and closes the schema cache if the builder created it.
	// A cache passed in with WithSchemaCache is left open for its owner.
	Close()
}

var _ Builder = &builder{}

// BuilderOption is a functional option applied to a Builder during construction.
type BuilderOption func(*builder)

// WithSchemaCache shares an existing schema cache instead of creating one.
//
// Parameters:
//   - c: the cache to use
//
// Returns:
//   - BuilderOption: a function that sets the cache
func WithSchemaCache(c schema.Cache) BuilderOption {
	return func(b *builder) {
		b.cache = c
	}
}

// WithCacheOptions configures the schema cache the builder creates. Ignored when WithSchemaCache is used.
//
// Parameters:
//   - options: options forwarded to schema.NewCache
//
// Returns:
//   - BuilderOption: a function that records the options
func WithCacheOptions(options ...schema.CacheBuilderOption) BuilderOption {
	return func(b *builder) {
		b.cacheOptions = append(b.cacheOptions, options...)
	}
}

// NewBuilder creates a pipeline builder.
//
// Parameters:
//   - options: variadic list of BuilderOption functions
//
// Returns:
//   - Builder: the builder
func NewBuilder(options ...BuilderOption) Builder {
	b := &builder{
		mu:        &sync.Mutex{},
		pipelines: make(map[string]Pipeline),
	}
	for _, opt := range options {
		opt(b)
	}
	if b.cache == nil {
		b.cache = schema.NewCache(b.cacheOptions...)
		b.ownsCache = true
	}
	return b
}

func (b *builder) NewRenderPipeline(key string, vs, fs shader.Shader, options ...PipelineBuilderOption) (Pipeline, error) {
	if vs == nil {
		return nil, fmt.Errorf("pipeline %s: %w: render pipelines need a vertex shader", key, ErrMissingShader)
	}
	return b.create(key, PipelineTypeRender, []shader.Shader{vs, fs}, options)
}

func (b *builder) NewComputePipeline(key string, cs shader.Shader, options ...PipelineBuilderOption) (Pipeline, error) {
	if cs == nil {
		return nil, fmt.Errorf("pipeline %s: %w: compute pipelines need a compute shader", key, ErrMissingShader)
	}
	return b.create(key, PipelineTypeCompute, []shader.Shader{cs}, options)
}

func (b *builder) create(key string, pipelineType PipelineType, shaders []shader.Shader, options []PipelineBuilderOption) (Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.pipelines[key]; ok {
		return p, nil
	}

	sources := make([]schema.StageSource, 0, len(shaders))
	opts := make([]PipelineBuilderOption, 0, len(shaders)+len(options)+1)
	for _, s := range shaders {
		if s == nil {
			continue
		}
		sources = append(sources, schema.StageSource{Stage: s.Stage(), Blob: s.Blob()})
		opts = append(opts, WithShader(s))
	}

	sch, err := b.cache.Get(key, sources...)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", key, err)
	}
	opts = append(opts, WithSchema(sch))
	opts = append(opts, options...)

	p, err := NewPipeline(key, pipelineType, opts...)
	if err != nil {
		return nil, err
	}
	b.pipelines[key] = p

	common.Logger().Debug("pipeline created",
		"key", key,
		"type", pipelineType.String(),
		"schema", sch.Label(),
		"groups", p.GroupCount())
	return p, nil
}

func (b *builder) Pipeline(key string) Pipeline {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pipelines[key]
}

func (b *builder) Cache() schema.Cache {
	return b.cache
}

func (b *builder) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.pipelines)
	if b.ownsCache {
		b.cache.Close()
	}
}
