package renderer

import (
	"fmt"
	"maps"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/schema"
	"github.com/Carmen-Shannon/oxy-bind/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	schema.Device
	schema.Context

	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline
	pending       []pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
}

// Renderer defines the interface for the rendering system.
//
// The Renderer is the schema.Device resource sets allocate their constant buffers on and the
// schema.Context they apply to. Resource sets bind by stage and slot; Draw and Dispatch turn
// whatever is currently bound into bind groups for the pipeline being used.
type Renderer interface {
	schema.Device
	schema.Context

	// Pipeline retrieves the registered Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines returns a copy of the registered pipelines keyed by PipelineKey.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines creates the GPU pipeline objects (render or compute) for one or more
	// pipelines via the backend, then caches them by PipelineKey.
	// Pipelines whose keys are already registered are skipped to avoid duplicate GPU resource creation.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// ReleasePipeline removes a pipeline from the cache and releases the bind groups built for it.
	//
	// Parameters:
	//   - key: the pipeline key
	ReleasePipeline(key string)

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// CreateMesh uploads vertex and optional uint32 index data.
	//
	// Parameters:
	//   - label: the mesh label
	//   - vertexData: the raw vertex data bytes to upload to the GPU
	//   - indexData: the raw index data bytes, or nil for a non-indexed mesh
	//   - indexCount: the number of indices, or of vertices when indexData is nil
	//
	// Returns:
	//   - Mesh: the uploaded mesh
	//   - error: an error if buffer creation fails
	CreateMesh(label string, vertexData, indexData []byte, indexCount int) (Mesh, error)

	// CreateTexture uploads pixel data as a sampled texture.
	//
	// Parameters:
	//   - data: the pixel data and dimensions
	//
	// Returns:
	//   - schema.ShaderResource: the texture handle, bindable by name through a resource set
	//   - error: an error if texture creation fails
	CreateTexture(data common.TextureData) (schema.ShaderResource, error)

	// CreateStorageTexture creates a texture compute shaders can write with textureStore.
	//
	// Parameters:
	//   - label: the texture label
	//   - width, height: the size in texels
	//   - format: the texel format declared in WGSL
	//
	// Returns:
	//   - schema.ShaderResource: the texture handle
	//   - error: an error if texture creation fails
	CreateStorageTexture(label string, width, height uint32, format wgpu.TextureFormat) (schema.ShaderResource, error)

	// CreateSampler creates a sampler. A Compare function makes it a comparison sampler.
	//
	// Parameters:
	//   - cfg: the sampler configuration
	//
	// Returns:
	//   - schema.Sampler: the sampler handle
	//   - error: an error if sampler creation fails
	CreateSampler(cfg common.SamplerConfig) (schema.Sampler, error)

	// CreateStorageBuffer creates a storage buffer bound through the shader-resource slots.
	//
	// Parameters:
	//   - label: the buffer label
	//   - data: the initial contents
	//   - readOnly: whether the handle is restricted to var<storage, read> bindings
	//
	// Returns:
	//   - schema.ShaderResource: the buffer handle
	//   - error: an error if buffer creation fails
	CreateStorageBuffer(label string, data []byte, readOnly bool) (schema.ShaderResource, error)

	// WriteStorageBuffer queues a write into a storage buffer.
	//
	// Parameters:
	//   - view: a handle returned by CreateStorageBuffer
	//   - offset: the byte offset
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the handle is foreign, released or too small
	WriteStorageBuffer(view schema.ShaderResource, offset uint64, data []byte) error

	// BeginComputeFrame creates a single command encoder for batching all compute dispatches
	// within a frame into one GPU submission. Must be paired with EndComputeFrame.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// EndComputeFrame submits the dispatches recorded since BeginComputeFrame.
	EndComputeFrame()

	// Dispatch encodes a compute pass for the registered pipeline with the given key, binding what
	// resource sets last applied to the compute stage.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier of a registered compute Pipeline
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	//
	// Returns:
	//   - error: ErrUnknownPipeline, ErrNoFrame or a binding error
	Dispatch(pipelineKey string, workGroupCount [3]uint32) error

	// BeginFrame acquires the swapchain texture and begins the main render pass.
	// Must be paired with EndFrame after all Draw invocations within a single frame.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// Draw encodes a single instanced draw within the current render pass, binding what resource
	// sets last applied to the vertex and fragment stages.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier of a registered render Pipeline
	//   - mesh: the mesh to draw
	//   - instanceCount: the number of instances to draw
	//
	// Returns:
	//   - error: ErrUnknownPipeline, ErrNoFrame or a binding error
	Draw(pipelineKey string, mesh Mesh, instanceCount uint32) error

	// EndFrame ends the current render pass and submits the command buffer to the GPU.
	// Does not present the surface; call Present after EndFrame to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	Present()

	// Stats returns the renderer's binding and submission counters.
	//
	// Returns:
	//   - Stats: a snapshot of the counters
	Stats() Stats

	// Release releases cached bind groups, pipelines' layouts and the GPU device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type for the given window.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - window: the window whose surface the renderer presents to
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: ErrSampleCount or ErrUnsupportedBackend for bad options, or the error of a pipeline
//     passed with WithPipeline that could not be registered
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x // default
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}
	if !msaa.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrSampleCount, msaa)
	}

	switch backendType {
	case BackendTypeWGPU:
		r.backend = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, backendType)
	}
	r.Device = r.backend
	r.Context = r.backend

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(window.Width(), window.Height())

	pending := r.pending
	r.pending = nil
	if err := r.RegisterPipelines(pending...); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.pipelineCache)
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		if p == nil {
			continue
		}
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		var err error
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			err = r.backend.RegisterComputePipeline(p)
		case pipeline.PipelineTypeRender:
			err = r.backend.RegisterRenderPipeline(p)
		}
		if err != nil {
			common.Logger().Warn("pipeline registration failed", "key", key, "error", err)
			return fmt.Errorf("register pipeline %s: %w", key, err)
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) ReleasePipeline(key string) {
	r.mu.Lock()
	p, exists := r.pipelineCache[key]
	delete(r.pipelineCache, key)
	r.mu.Unlock()

	if exists {
		r.backend.ReleasePipelineBindGroups(p)
	}
}

func (r *renderer) lookup(key string) (pipeline.Pipeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, exists := r.pipelineCache[key]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipeline, key)
	}
	return p, nil
}

func (r *renderer) CreateMesh(label string, vertexData, indexData []byte, indexCount int) (Mesh, error) {
	return r.backend.CreateMesh(label, vertexData, indexData, indexCount)
}

func (r *renderer) CreateTexture(data common.TextureData) (schema.ShaderResource, error) {
	return r.backend.CreateTexture(data)
}

func (r *renderer) CreateStorageTexture(label string, width, height uint32, format wgpu.TextureFormat) (schema.ShaderResource, error) {
	return r.backend.CreateStorageTexture(label, width, height, format)
}

func (r *renderer) CreateSampler(cfg common.SamplerConfig) (schema.Sampler, error) {
	return r.backend.CreateSampler(cfg)
}

func (r *renderer) CreateStorageBuffer(label string, data []byte, readOnly bool) (schema.ShaderResource, error) {
	return r.backend.CreateStorageBuffer(label, data, readOnly)
}

func (r *renderer) WriteStorageBuffer(view schema.ShaderResource, offset uint64, data []byte) error {
	return r.backend.WriteStorageBuffer(view, offset, data)
}

func (r *renderer) BeginComputeFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) EndComputeFrame() {
	r.backend.EndComputeFrame()
}

func (r *renderer) Dispatch(pipelineKey string, workGroupCount [3]uint32) error {
	p, err := r.lookup(pipelineKey)
	if err != nil {
		return err
	}
	return r.backend.DispatchCompute(p, workGroupCount)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) Draw(pipelineKey string, mesh Mesh, instanceCount uint32) error {
	p, err := r.lookup(pipelineKey)
	if err != nil {
		return err
	}
	return r.backend.DrawCall(p, mesh, instanceCount)
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Stats() Stats {
	return r.backend.Stats()
}

func (r *renderer) Release() {
	r.mu.Lock()
	clear(r.pipelineCache)
	r.mu.Unlock()
	r.backend.Release()
}
