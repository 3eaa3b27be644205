package renderer

import (
	"errors"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/schema"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTextureView      *wgpu.TextureView
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	sampleCount MSAASampleCount

	// Render frame state, valid between BeginFrame and EndFrame/Present.
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	computeFrameEncoder *wgpu.CommandEncoder

	tables     bindTables
	bindGroups *bindGroupCache
	// constant buffers flushed since the last submit with no encoder open
	flushed []*wgpuConstantBuffer
	// scratch reused by every bind group assembly
	groupScratch  []*wgpu.BindGroup
	handleScratch []any

	stats Stats
}

type wgpuRendererBackend interface {
	schema.Device
	schema.Context

	// ConfigureSurface (re)configures the surface and the MSAA and depth attachments for a new size.
	// A zero width or height (a minimised window) leaves the current configuration in place.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode. It takes effect on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline creates the shader modules, bind group layouts, pipeline layout and
	// render pipeline for p and stores them on p.
	//
	// Parameters:
	//   - p: a render pipeline
	//
	// Returns:
	//   - error: an error if any GPU object could not be created
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// RegisterComputePipeline creates the shader module, bind group layouts, pipeline layout and
	// compute pipeline for p and stores them on p.
	//
	// Parameters:
	//   - p: a compute pipeline
	//
	// Returns:
	//   - error: an error if any GPU object could not be created
	RegisterComputePipeline(p pipeline.Pipeline) error

	// BeginComputeFrame creates the command encoder all dispatches of a frame are recorded into.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// EndComputeFrame submits the dispatches recorded since BeginComputeFrame.
	EndComputeFrame()

	// DispatchCompute records one compute pass. Bind groups are assembled from what the
	// resource sets last applied to the compute stage.
	//
	// Parameters:
	//   - p: a registered compute pipeline
	//   - workGroupCount: the number of workgroups to dispatch in x, y and z
	//
	// Returns:
	//   - error: ErrNoFrame, ErrUnknownPipeline or a bind group assembly error
	DispatchCompute(p pipeline.Pipeline, workGroupCount [3]uint32) error

	// BeginFrame acquires the next surface texture and begins the frame's render pass.
	//
	// Returns:
	//   - error: an error if the previous frame was not presented or no texture could be acquired
	BeginFrame() error

	// DrawCall records one instanced draw of mesh. Bind groups are assembled from what the
	// resource sets last applied to the vertex and fragment stages.
	//
	// Parameters:
	//   - p: a registered render pipeline
	//   - mesh: the mesh to draw
	//   - instanceCount: the number of instances
	//
	// Returns:
	//   - error: ErrNoFrame, ErrUnknownPipeline or a bind group assembly error
	DrawCall(p pipeline.Pipeline, mesh Mesh, instanceCount uint32) error

	// EndFrame ends the render pass and submits the frame. Call Present afterwards.
	EndFrame()

	// Present presents the surface and releases the frame's texture.
	Present()

	// CreateMesh uploads vertex and optional index data. Without index data indexCount is the
	// number of vertices drawn.
	//
	// Parameters:
	//   - label: the mesh label
	//   - vertexData: raw vertex bytes
	//   - indexData: raw uint32 index bytes, may be empty
	//   - indexCount: the number of indices, or of vertices for a non-indexed mesh
	//
	// Returns:
	//   - Mesh: the uploaded mesh
	//   - error: an error if a buffer could not be created
	CreateMesh(label string, vertexData, indexData []byte, indexCount int) (Mesh, error)

	// CreateTexture uploads RGBA8 pixel data as a sampled 2D texture.
	//
	// Parameters:
	//   - data: the pixel data
	//
	// Returns:
	//   - schema.ShaderResource: the texture view handle
	//   - error: an error if the texture could not be created
	CreateTexture(data common.TextureData) (schema.ShaderResource, error)

	// CreateStorageTexture creates a 2D texture usable as a storage texture and as a sampled texture.
	//
	// Parameters:
	//   - label: the texture label
	//   - width, height: the texture size in texels
	//   - format: the texel format, matching the WGSL declaration
	//
	// Returns:
	//   - schema.ShaderResource: the texture view handle
	//   - error: an error if the texture could not be created
	CreateStorageTexture(label string, width, height uint32, format wgpu.TextureFormat) (schema.ShaderResource, error)

	// CreateSampler creates a sampler. Zero fields of cfg fall back to linear repeat sampling.
	//
	// Parameters:
	//   - cfg: the sampler configuration
	//
	// Returns:
	//   - schema.Sampler: the sampler handle
	//   - error: an error if the sampler could not be created
	CreateSampler(cfg common.SamplerConfig) (schema.Sampler, error)

	// CreateStorageBuffer creates a storage buffer initialised with data, padded to a multiple of 4 bytes.
	//
	// Parameters:
	//   - label: the buffer label
	//   - data: the initial contents
	//   - readOnly: whether the handle satisfies var<storage, read> bindings only
	//
	// Returns:
	//   - schema.ShaderResource: the buffer handle
	//   - error: an error if the buffer could not be created
	CreateStorageBuffer(label string, data []byte, readOnly bool) (schema.ShaderResource, error)

	// WriteStorageBuffer queues a write into a storage buffer created by CreateStorageBuffer.
	//
	// Parameters:
	//   - view: the storage buffer handle
	//   - offset: the byte offset, a multiple of 4
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: ErrForeignHandle or ErrReleasedHandle
	WriteStorageBuffer(view schema.ShaderResource, offset uint64, data []byte) error

	// ReleasePipelineBindGroups releases the cached bind groups built for p's layouts.
	//
	// Parameters:
	//   - p: a registered pipeline
	ReleasePipelineBindGroups(p pipeline.Pipeline)

	// Stats returns the binding and submission counters.
	Stats() Stats

	// Release frees cached bind groups, the attachments and the device.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: sampleCount,
		bindGroups:  newBindGroupCache(),
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	// Each group spans reflection.SlotsPerGroup slots; eight groups cover every slot the schema can address.
	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 8

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	common.Logger().Info("renderer device created",
		"fallbackAdapter", forceFallbackAdapter,
		"msaa", uint32(sampleCount))
	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTextureView = nil
	}

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1

	if msaaEnabled {
		// The pass draws into the MSAA texture and resolves into the swapchain view.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	}

	// Depth sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          b.msaaTextureView, // nil without MSAA; BeginFrame sets the swapchain view
				ResolveTarget: nil,
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       storeOp,
				ClearValue: wgpu.Color{
					R: 0.1, G: 0.1, B: 0.1, A: 1.0,
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.presentMode = mode.surfaceMode()
}

// CreateConstantBuffer implements schema.Device. The buffer keeps a host copy that MapDiscard
// hands out and Unmap uploads into a fresh version.
func (b *wgpuRendererBackendImpl) CreateConstantBuffer(label string, size uint32) (schema.ConstantBuffer, error) {
	buf, err := b.createUniformBuffer(label, size)
	if err != nil {
		common.Logger().Warn("constant buffer creation failed", "label", label, "size", size, "error", err)
		return nil, err
	}
	return &wgpuConstantBuffer{
		id:        nextHandleID.Add(1),
		label:     label,
		size:      size,
		buffer:    buf,
		versions:  []*wgpu.Buffer{buf},
		shadow:    make([]byte, size),
		onRelease: b.forget,
	}, nil
}

func (b *wgpuRendererBackendImpl) createUniformBuffer(label string, size uint32) (*wgpu.Buffer, error) {
	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
}

func (b *wgpuRendererBackendImpl) constantBuffer(cb schema.ConstantBuffer) (*wgpuConstantBuffer, error) {
	buf, ok := cb.(*wgpuConstantBuffer)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrForeignHandle, cb)
	}
	if buf.buffer == nil {
		return nil, fmt.Errorf("%w: %s", ErrReleasedHandle, buf.label)
	}
	return buf, nil
}

func (b *wgpuRendererBackendImpl) MapDiscard(cb schema.ConstantBuffer) ([]byte, error) {
	buf, err := b.constantBuffer(cb)
	if err != nil {
		return nil, err
	}
	return buf.shadow, nil
}

func (b *wgpuRendererBackendImpl) Unmap(cb schema.ConstantBuffer) {
	buf, err := b.constantBuffer(cb)
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	target, err := buf.advance(func() (*wgpu.Buffer, error) {
		common.Logger().Debug("constant buffer version added", "label", buf.label, "versions", len(buf.versions)+1)
		return b.createUniformBuffer(buf.label, buf.size)
	})
	if err != nil {
		common.Logger().Warn("constant buffer upload dropped", "label", buf.label, "error", err)
		return
	}
	if buf.flushes == 1 {
		b.flushed = append(b.flushed, buf)
	}
	b.queue.WriteBuffer(target, 0, buf.shadow)
	b.stats.ConstantUploads++
	b.stats.UploadedBytes += uint64(len(buf.shadow))
}

func (b *wgpuRendererBackendImpl) SetSamplers(stage reflection.Stage, start uint32, samplers []schema.Sampler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tables.setSamplers(stage, start, samplers)
	b.stats.SetCalls++
}

func (b *wgpuRendererBackendImpl) SetShaderResources(stage reflection.Stage, start uint32, views []schema.ShaderResource) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tables.setViews(stage, start, views)
	b.stats.SetCalls++
}

func (b *wgpuRendererBackendImpl) SetConstantBuffers(stage reflection.Stage, start uint32, buffers []schema.ConstantBuffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tables.setBuffers(stage, start, buffers)
	b.stats.SetCalls++
}

// forget drops a released handle from the slot tables and releases the bind groups built with it.
func (b *wgpuRendererBackendImpl) forget(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tables.forget(id)
	evicted := b.bindGroups.evict(id)
	for _, bg := range evicted {
		bg.Release()
	}
	b.stats.BindGroupsEvicted += uint64(len(evicted))
}

// createBindGroupLayouts creates one layout per group index below p.GroupCount(). Groups no stage
// uses get an empty layout so the pipeline layout has no holes.
func (b *wgpuRendererBackendImpl) createBindGroupLayouts(p pipeline.Pipeline) ([]*wgpu.BindGroupLayout, error) {
	descriptors := p.BindGroupLayoutDescriptors()
	layouts := make([]*wgpu.BindGroupLayout, p.GroupCount())
	release := func() {
		for _, l := range layouts {
			if l != nil {
				l.Release()
			}
		}
	}

	for g := range layouts {
		desc, ok := descriptors[g]
		if !ok {
			desc = wgpu.BindGroupLayoutDescriptor{}
		}
		for _, e := range desc.Entries {
			if _, known := entryCategory(e); !known {
				release()
				return nil, fmt.Errorf("%w: group %d binding %d", ErrUnsupportedBinding, g, e.Binding)
			}
			if e.StorageTexture.Access != wgpu.StorageTextureAccessUndefined && e.StorageTexture.Format == wgpu.TextureFormatUndefined {
				release()
				return nil, fmt.Errorf("%w: storage texture at group %d binding %d has no texel format", ErrUnsupportedBinding, g, e.Binding)
			}
		}
		desc.Label = fmt.Sprintf("%s group %d", p.PipelineKey(), g)

		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		layouts[g] = layout
	}
	return layouts, nil
}

func (b *wgpuRendererBackendImpl) createShaderModule(p pipeline.Pipeline, stage reflection.Stage) (*wgpu.ShaderModule, error) {
	s := p.Shader(stage)
	if s == nil {
		return nil, nil
	}
	return b.device.CreateShaderModule(s.Module())
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	vertexShader := p.Shader(reflection.StageVertex)
	if p.Type() != pipeline.PipelineTypeRender || vertexShader == nil {
		return errors.New("a vertex shader must be set to create a render pipeline")
	}
	fragmentShader := p.Shader(reflection.StageFragment)

	vs, err := b.createShaderModule(p, reflection.StageVertex)
	if err != nil {
		return err
	}
	defer vs.Release()
	fs, err := b.createShaderModule(p, reflection.StageFragment)
	if err != nil {
		return err
	}
	if fs != nil {
		defer fs.Release()
	}

	bindGroupLayouts, err := b.createBindGroupLayouts(p)
	if err != nil {
		return err
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	// Vertex buffer slots follow the struct keys in ascending order.
	vertexLayouts := make([]wgpu.VertexBufferLayout, 0, len(vertexShader.VertexLayouts()))
	for _, k := range slices.Sorted(maps.Keys(vertexShader.VertexLayouts())) {
		vertexLayouts = append(vertexLayouts, vertexShader.VertexLayout(k)...)
	}

	raster := p.Raster()
	var fragment *wgpu.FragmentState
	if fs != nil {
		fragment = &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{raster.ColorTarget(*b.surfaceFormat)},
		}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexLayouts,
		},
		Fragment:  fragment,
		Primitive: raster.Primitive(),
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: raster.DepthStencil(wgpu.TextureFormatDepth24Plus),
	})
	if err != nil {
		for _, l := range bindGroupLayouts {
			l.Release()
		}
		return err
	}

	p.SetRenderPipeline(created, bindGroupLayouts)
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	computeShader := p.Shader(reflection.StageCompute)
	if p.Type() != pipeline.PipelineTypeCompute || computeShader == nil {
		return errors.New("a compute shader must be set to create a compute pipeline")
	}

	s, err := b.createShaderModule(p, reflection.StageCompute)
	if err != nil {
		return err
	}
	defer s.Release()

	bindGroupLayouts, err := b.createBindGroupLayouts(p)
	if err != nil {
		return err
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}
	defer layout.Release()

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		for _, l := range bindGroupLayouts {
			l.Release()
		}
		return err
	}

	p.SetComputePipeline(created, bindGroupLayouts)
	return nil
}

// assembleBindGroups returns the bind groups for every group of p, built from the slot tables.
// Must be called with b.mu held. The returned slice is reused by the next call.
func (b *wgpuRendererBackendImpl) assembleBindGroups(p pipeline.Pipeline) ([]*wgpu.BindGroup, error) {
	layouts := p.BindGroupLayouts()
	descriptors := p.BindGroupLayoutDescriptors()
	b.groupScratch = b.groupScratch[:0]

	for g, layout := range layouts {
		entries := descriptors[g].Entries
		handles := b.handleScratch[:0]
		for _, e := range entries {
			h, err := b.tables.resolve(uint32(g), e)
			if err != nil {
				return nil, fmt.Errorf("pipeline %s: %w", p.PipelineKey(), err)
			}
			handles = append(handles, h)
		}
		b.handleScratch = handles

		key := makeGroupKey(layout, handles)
		if bg, ok := b.bindGroups.get(key); ok {
			b.stats.BindGroupCacheHits++
			b.groupScratch = append(b.groupScratch, bg)
			continue
		}

		bgEntries := make([]wgpu.BindGroupEntry, len(entries))
		for i, e := range entries {
			entry, err := bindGroupEntry(e.Binding, handles[i])
			if err != nil {
				return nil, fmt.Errorf("pipeline %s group %d: %w", p.PipelineKey(), g, err)
			}
			bgEntries[i] = entry
		}
		bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s group %d", p.PipelineKey(), g),
			Layout:  layout,
			Entries: bgEntries,
		})
		if err != nil {
			common.Logger().Warn("bind group creation failed", "pipeline", p.PipelineKey(), "group", g, "error", err)
			return nil, err
		}
		b.bindGroups.put(key, bg, handles)
		b.stats.BindGroupsCreated++
		common.Logger().Debug("bind group created", "pipeline", p.PipelineKey(), "group", g, "entries", len(bgEntries))
		b.groupScratch = append(b.groupScratch, bg)
	}
	return b.groupScratch, nil
}

// bindGroupEntry converts a resolved handle into a bind group entry.
func bindGroupEntry(binding uint32, h any) (wgpu.BindGroupEntry, error) {
	switch v := h.(type) {
	case *wgpuConstantBuffer:
		if v.buffer == nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("%w: %s", ErrReleasedHandle, v.label)
		}
		return wgpu.BindGroupEntry{Binding: binding, Buffer: v.buffer, Offset: 0, Size: wgpu.WholeSize}, nil
	case *wgpuStorageBuffer:
		if v.buffer == nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("%w: %s", ErrReleasedHandle, v.label)
		}
		return wgpu.BindGroupEntry{Binding: binding, Buffer: v.buffer, Offset: 0, Size: wgpu.WholeSize}, nil
	case *wgpuTexture:
		if v.view == nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("%w: %s", ErrReleasedHandle, v.label)
		}
		return wgpu.BindGroupEntry{Binding: binding, TextureView: v.view}, nil
	case *wgpuSampler:
		if v.sampler == nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("%w: %s", ErrReleasedHandle, v.label)
		}
		return wgpu.BindGroupEntry{Binding: binding, Sampler: v.sampler}, nil
	}
	return wgpu.BindGroupEntry{}, fmt.Errorf("%w: %T", ErrForeignHandle, h)
}

func (b *wgpuRendererBackendImpl) ReleasePipelineBindGroups(p pipeline.Pipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, layout := range p.BindGroupLayouts() {
		evicted := b.bindGroups.evictLayout(layout)
		for _, bg := range evicted {
			bg.Release()
		}
		b.stats.BindGroupsEvicted += uint64(len(evicted))
	}
}

func (b *wgpuRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.computeFrameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) EndComputeFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return
	}

	commandBuffer, err := b.computeFrameEncoder.Finish(nil)
	if err != nil {
		b.computeFrameEncoder.Release()
		b.computeFrameEncoder = nil
		return
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.computeFrameEncoder.Release()
	b.computeFrameEncoder = nil
	b.endUploadFrame()
}

func (b *wgpuRendererBackendImpl) DispatchCompute(p pipeline.Pipeline, workGroupCount [3]uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return ErrNoFrame
	}
	computePipeline, ok := p.Pipeline().(*wgpu.ComputePipeline)
	if !ok || computePipeline == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPipeline, p.PipelineKey())
	}

	groups, err := b.assembleBindGroups(p)
	if err != nil {
		return err
	}

	pass := b.computeFrameEncoder.BeginComputePass(nil)
	pass.SetPipeline(computePipeline)
	for i, bg := range groups {
		pass.SetBindGroup(uint32(i), bg, nil)
	}
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
	b.stats.Dispatches++
	return nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Acquiring a second surface image before Present fails validation in wgpu-native.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}
	if b.renderPassDescriptor == nil {
		return fmt.Errorf("%w: surface not configured", ErrNoFrame)
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuRendererBackendImpl) DrawCall(p pipeline.Pipeline, mesh Mesh, instanceCount uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return ErrNoFrame
	}
	renderPipeline, ok := p.Pipeline().(*wgpu.RenderPipeline)
	if !ok || renderPipeline == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPipeline, p.PipelineKey())
	}
	m, ok := mesh.(*wgpuMesh)
	if !ok {
		return fmt.Errorf("%w: %T", ErrForeignHandle, mesh)
	}
	if m.vertexBuffer == nil {
		return fmt.Errorf("%w: mesh %s", ErrReleasedHandle, m.label)
	}

	groups, err := b.assembleBindGroups(p)
	if err != nil {
		return err
	}

	b.framePass.SetPipeline(renderPipeline)
	for i, bg := range groups {
		b.framePass.SetBindGroup(uint32(i), bg, nil)
	}

	b.framePass.SetVertexBuffer(0, m.vertexBuffer, 0, wgpu.WholeSize)
	if m.indexBuffer != nil {
		b.framePass.SetIndexBuffer(m.indexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		b.framePass.DrawIndexed(uint32(m.indexCount), instanceCount, 0, 0, 0)
	} else {
		b.framePass.Draw(uint32(m.indexCount), instanceCount, 0, 0)
	}
	b.stats.DrawCalls++
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.framePass = nil
		b.frameSurface = nil
		b.frameView = nil
		return
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil
	b.endUploadFrame()
}

// endUploadFrame rewinds the constant buffer versions once every recorded command that could
// bind them has been submitted. Must be called with b.mu held.
func (b *wgpuRendererBackendImpl) endUploadFrame() {
	if b.frameEncoder != nil || b.computeFrameEncoder != nil {
		return
	}
	for _, buf := range b.flushed {
		buf.endFrame()
	}
	clear(b.flushed)
	b.flushed = b.flushed[:0]
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) CreateMesh(label string, vertexData, indexData []byte, indexCount int) (Mesh, error) {
	if len(vertexData) == 0 {
		return nil, fmt.Errorf("mesh %s: no vertex data", label)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m := &wgpuMesh{label: label, indexCount: indexCount}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Vertex Buffer",
		Size:  common.AlignUp(uint64(4), uint64(len(vertexData))),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	b.queue.WriteBuffer(buf, 0, padTo4(vertexData))
	m.vertexBuffer = buf

	if len(indexData) > 0 {
		buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label + " Index Buffer",
			Size:  common.AlignUp(uint64(4), uint64(len(indexData))),
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			m.Release()
			return nil, err
		}
		b.queue.WriteBuffer(buf, 0, padTo4(indexData))
		m.indexBuffer = buf
	}

	return m, nil
}

// padTo4 returns data extended with zeros to a multiple of 4 bytes, as queue writes require.
func padTo4(data []byte) []byte {
	n := int(common.AlignUp(uint64(4), uint64(len(data))))
	if n == len(data) {
		return data
	}
	out := make([]byte, n)
	copy(out, data)
	return out
}

func (b *wgpuRendererBackendImpl) CreateTexture(data common.TextureData) (schema.ShaderResource, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     data.Label + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		common.Logger().Warn("texture creation failed", "label", data.Label, "error", err)
		return nil, err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	return &wgpuTexture{
		id:        nextHandleID.Add(1),
		label:     data.Label,
		kind:      reflection.ResourceSampledTexture,
		texture:   tex,
		view:      view,
		onRelease: b.forget,
	}, nil
}

func (b *wgpuRendererBackendImpl) CreateStorageTexture(label string, width, height uint32, format wgpu.TextureFormat) (schema.ShaderResource, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label + " Storage Texture",
		Usage:     wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		common.Logger().Warn("storage texture creation failed", "label", label, "error", err)
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	return &wgpuTexture{
		id:        nextHandleID.Add(1),
		label:     label,
		kind:      reflection.ResourceStorageTexture,
		texture:   tex,
		view:      view,
		onRelease: b.forget,
	}, nil
}

func (b *wgpuRendererBackendImpl) CreateSampler(cfg common.SamplerConfig) (schema.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         cfg.Label + " Sampler",
		AddressModeU:  common.Coalesce(cfg.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(cfg.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(cfg.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(cfg.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(cfg.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(cfg.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   cfg.LodMinClamp,
		LodMaxClamp:   common.Coalesce(cfg.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(cfg.MaxAnisotropy, 1),
		Compare:       cfg.Compare,
	})
	if err != nil {
		common.Logger().Warn("sampler creation failed", "label", cfg.Label, "error", err)
		return nil, err
	}

	return &wgpuSampler{
		id:         nextHandleID.Add(1),
		label:      cfg.Label,
		comparison: cfg.Compare != wgpu.CompareFunctionUndefined,
		sampler:    samp,
		onRelease:  b.forget,
	}, nil
}

func (b *wgpuRendererBackendImpl) CreateStorageBuffer(label string, data []byte, readOnly bool) (schema.ShaderResource, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("storage buffer %s: no data", label)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	padded := padTo4(data)
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Storage Buffer",
		Size:  uint64(len(padded)),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		common.Logger().Warn("storage buffer creation failed", "label", label, "error", err)
		return nil, err
	}
	b.queue.WriteBuffer(buf, 0, padded)

	return &wgpuStorageBuffer{
		id:        nextHandleID.Add(1),
		label:     label,
		readOnly:  readOnly,
		size:      uint64(len(padded)),
		buffer:    buf,
		onRelease: b.forget,
	}, nil
}

func (b *wgpuRendererBackendImpl) WriteStorageBuffer(view schema.ShaderResource, offset uint64, data []byte) error {
	buf, ok := view.(*wgpuStorageBuffer)
	if !ok {
		return fmt.Errorf("%w: %T", ErrForeignHandle, view)
	}
	if buf.buffer == nil {
		return fmt.Errorf("%w: %s", ErrReleasedHandle, buf.label)
	}
	if offset+uint64(len(data)) > buf.size {
		return fmt.Errorf("storage buffer %s: write of %d bytes at %d exceeds %d", buf.label, len(data), offset, buf.size)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue.WriteBuffer(buf.buffer, offset, padTo4(data))
	return nil
}

func (b *wgpuRendererBackendImpl) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.stats
	s.BindGroupsLive = b.bindGroups.size()
	return s
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, bg := range b.bindGroups.drain() {
		bg.Release()
	}
	b.tables = bindTables{}
	b.flushed = nil
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTextureView = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
