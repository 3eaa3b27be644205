package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/schema"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with a vertex and an optional fragment entry point.
	PipelineTypeRender
)

func (t PipelineType) String() string {
	switch t {
	case PipelineTypeCompute:
		return "compute"
	case PipelineTypeRender:
		return "render"
	default:
		return fmt.Sprintf("pipeline(%d)", int(t))
	}
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineType PipelineType
	pipelineKey  string

	shaders [reflection.StageCount]shader.Shader
	schema  schema.Schema

	// layoutDescriptors merges the stage layouts; layouts is filled in when the backend registers the pipeline.
	layoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	layouts           []*wgpu.BindGroupLayout

	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline

	raster RasterState
}

// Pipeline is a render pipeline (vertex + optional fragment shader) or a compute pipeline, the
// schema describing what it binds and the raster state used when the backend creates it.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader loaded for a stage.
	//
	// Parameters:
	//   - stage: the stage to look up
	//
	// Returns:
	//   - shader.Shader: the stage's shader, or nil if the pipeline has none
	Shader(stage reflection.Stage) shader.Shader

	// Schema returns the binding schema resource sets for this pipeline are created from.
	// Pipelines built without a schema return nil.
	//
	// Returns:
	//   - schema.Schema: the pipeline's schema
	Schema() schema.Schema

	// BindGroupLayoutDescriptors returns the bind group layouts of every stage merged by group.
	// A (group, binding) pair used by several stages carries the union of their visibilities.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// GroupCount returns one more than the highest group index any stage uses.
	GroupCount() int

	// BindGroupLayouts returns the GPU layouts created at registration, indexed by group.
	//
	// Returns:
	//   - []*wgpu.BindGroupLayout: the layouts, or nil before registration
	BindGroupLayouts() []*wgpu.BindGroupLayout

	// Pipeline returns the underlying pipeline object, either *wgpu.RenderPipeline or *wgpu.ComputePipeline
	// Note: The caller is responsible for type asserting the returned value as either pipeline type.
	//
	// Returns:
	//   - any: the underlying pipeline object.
	Pipeline() any

	// Registered reports whether the backend has created the GPU pipeline.
	Registered() bool

	// Raster returns the fixed-function state the backend creates a render pipeline with.
	Raster() RasterState

	// SetRenderPipeline stores the created render pipeline and its bind group layouts.
	//
	// Parameters:
	//   - p: the WebGPU render pipeline
	//   - layouts: the bind group layouts indexed by group
	SetRenderPipeline(p *wgpu.RenderPipeline, layouts []*wgpu.BindGroupLayout)

	// SetComputePipeline stores the created compute pipeline and its bind group layouts.
	//
	// Parameters:
	//   - p: the WebGPU compute pipeline
	//   - layouts: the bind group layouts indexed by group
	SetComputePipeline(p *wgpu.ComputePipeline, layouts []*wgpu.BindGroupLayout)
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a pipeline description. Render pipelines need a vertex shader, compute
// pipelines a compute shader; the stage layouts are merged here so conflicts surface before any
// GPU object exists.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the configured pipeline
//   - error: ErrMissingShader, ErrStageMismatch or ErrLayoutConflict
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) (Pipeline, error) {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		pipelineType: pipelineType,
		raster:       DefaultRasterState(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", pipelineKey, err)
	}

	merged, err := mergeBindGroupLayouts(p.presentShaders()...)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", pipelineKey, err)
	}
	p.layoutDescriptors = merged
	return p, nil
}

func (p *pipeline) validate() error {
	for stage, s := range p.shaders {
		if s != nil && s.Stage() != reflection.Stage(stage) {
			return fmt.Errorf("%w: %s shader %s in %s slot", ErrStageMismatch, s.Stage(), s.Key(), reflection.Stage(stage))
		}
	}
	switch p.pipelineType {
	case PipelineTypeRender:
		if p.shaders[reflection.StageVertex] == nil {
			return fmt.Errorf("%w: render pipelines need a vertex shader", ErrMissingShader)
		}
		if p.shaders[reflection.StageCompute] != nil {
			return fmt.Errorf("%w: compute shader on a render pipeline", ErrStageMismatch)
		}
	case PipelineTypeCompute:
		if p.shaders[reflection.StageCompute] == nil {
			return fmt.Errorf("%w: compute pipelines need a compute shader", ErrMissingShader)
		}
		if p.shaders[reflection.StageVertex] != nil || p.shaders[reflection.StageFragment] != nil {
			return fmt.Errorf("%w: graphics shader on a compute pipeline", ErrStageMismatch)
		}
	default:
		return fmt.Errorf("%w: %s", ErrStageMismatch, p.pipelineType)
	}
	return nil
}

func (p *pipeline) presentShaders() []shader.Shader {
	out := make([]shader.Shader, 0, len(p.shaders))
	for _, s := range p.shaders {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(stage reflection.Stage) shader.Shader {
	if stage < 0 || stage >= reflection.StageCount {
		return nil
	}
	return p.shaders[stage]
}

func (p *pipeline) Schema() schema.Schema {
	return p.schema
}

func (p *pipeline) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return p.layoutDescriptors
}

func (p *pipeline) GroupCount() int {
	count := 0
	for g := range p.layoutDescriptors {
		if g+1 > count {
			count = g + 1
		}
	}
	return count
}

func (p *pipeline) BindGroupLayouts() []*wgpu.BindGroupLayout {
	return p.layouts
}

func (p *pipeline) Pipeline() any {
	switch p.pipelineType {
	case PipelineTypeRender:
		return p.renderPipeline
	case PipelineTypeCompute:
		return p.computePipeline
	default:
		return nil
	}
}

func (p *pipeline) Registered() bool {
	return p.renderPipeline != nil || p.computePipeline != nil
}

func (p *pipeline) Raster() RasterState {
	return p.raster
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline, layouts []*wgpu.BindGroupLayout) {
	p.renderPipeline = rp
	p.layouts = layouts
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline, layouts []*wgpu.BindGroupLayout) {
	p.computePipeline = cp
	p.layouts = layouts
}
