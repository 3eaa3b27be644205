package pipeline

import (
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/schema"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithShader attaches a shader to the slot of its own stage. Nil shaders are ignored.
//
// Parameters:
//   - s: the shader to attach
//
// Returns:
//   - PipelineBuilderOption: a function that attaches the shader
func WithShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		if s == nil {
			return
		}
		if st := s.Stage(); st >= 0 && st < reflection.StageCount {
			p.shaders[st] = s
		}
	}
}

// WithVertexShader sets the vertex shader for this pipeline.
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.shaders[reflection.StageVertex] = s
	}
}

// WithFragmentShader sets the fragment shader for this pipeline.
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.shaders[reflection.StageFragment] = s
	}
}

// WithComputeShader sets the compute shader for this pipeline.
func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.shaders[reflection.StageCompute] = s
	}
}

// WithSchema attaches the binding schema resource sets for this pipeline are created from.
//
// Parameters:
//   - s: the schema built from the pipeline's stages
//
// Returns:
//   - PipelineBuilderOption: a function that attaches the schema
func WithSchema(s schema.Schema) PipelineBuilderOption {
	return func(p *pipeline) {
		p.schema = s
	}
}

// WithRasterState replaces the whole raster state. Later raster options still apply on top.
//
// Parameters:
//   - state: the raster state, usually DefaultRasterState() with fields changed
//
// Returns:
//   - PipelineBuilderOption: a function that sets the raster state
func WithRasterState(state RasterState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.raster = state
	}
}

// WithDepthTestEnabled toggles the depth test. When disabled the depth compare is Always.
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.raster.DepthTest = enabled
	}
}

// WithDepthWriteEnabled toggles depth writes.
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.raster.DepthWrite = enabled
	}
}

// WithDepthBias sets the constant and slope-scaled depth bias, e.g. for shadow or decal passes.
//
// Parameters:
//   - bias: the constant depth bias to apply
//   - slopeScale: the slope scale depth bias to apply
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth bias parameters
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.raster.DepthBias = bias
		p.raster.DepthBiasSlopeScale = slopeScale
	}
}

// WithBlendEnabled toggles blending with the pipeline's blend state.
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.raster.Blend = enabled
	}
}

// WithCullMode sets the cull mode (wgpu.CullModeNone, wgpu.CullModeFront or wgpu.CullModeBack).
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.raster.CullMode = mode
	}
}

// WithTopology sets the primitive topology.
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.raster.Topology = topology
	}
}

// WithFrontFace sets the front face winding order.
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.raster.FrontFace = frontFace
	}
}

// WithWriteMask sets the color write mask.
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.raster.WriteMask = writeMask
	}
}

// WithBlendState replaces the default source-alpha blend state. It is only applied when
// blending is enabled.
//
// Parameters:
//   - blendState: the blend state to use
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.raster.BlendState = blendState
	}
}
