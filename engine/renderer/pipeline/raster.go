package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// RasterState is the fixed-function state of a render pipeline. Compute pipelines carry the
// defaults and never read them.
type RasterState struct {
	DepthTest           bool
	DepthWrite          bool
	DepthBias           int32
	DepthBiasSlopeScale float32

	// Blend enables BlendState on the color target.
	Blend      bool
	BlendState *wgpu.BlendState

	CullMode  wgpu.CullMode
	Topology  wgpu.PrimitiveTopology
	FrontFace wgpu.FrontFace
	WriteMask wgpu.ColorWriteMask
}

// DefaultRasterState returns depth-tested, depth-writing, unculled CCW triangle lists with
// blending off. The blend state is source-alpha over, ready for WithBlendEnabled.
func DefaultRasterState() RasterState {
	return RasterState{
		DepthTest:  true,
		DepthWrite: true,
		BlendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
		CullMode:  wgpu.CullModeNone,
		Topology:  wgpu.PrimitiveTopologyTriangleList,
		FrontFace: wgpu.FrontFaceCCW,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
}

// ColorTarget describes the single color attachment in format.
func (r RasterState) ColorTarget(format wgpu.TextureFormat) wgpu.ColorTargetState {
	target := wgpu.ColorTargetState{Format: format, WriteMask: r.WriteMask}
	if r.Blend {
		target.Blend = r.BlendState
	}
	return target
}

func (r RasterState) Primitive() wgpu.PrimitiveState {
	return wgpu.PrimitiveState{
		Topology:  r.Topology,
		FrontFace: r.FrontFace,
		CullMode:  r.CullMode,
	}
}

// DepthStencil describes a depth attachment in format. Without the depth test every fragment
// passes; stencil is always disabled.
func (r RasterState) DepthStencil(format wgpu.TextureFormat) *wgpu.DepthStencilState {
	compare := wgpu.CompareFunctionLess
	if !r.DepthTest {
		compare = wgpu.CompareFunctionAlways
	}
	return &wgpu.DepthStencilState{
		Format:              format,
		DepthWriteEnabled:   r.DepthWrite,
		DepthCompare:        compare,
		DepthBias:           r.DepthBias,
		DepthBiasSlopeScale: r.DepthBiasSlopeScale,
		StencilFront:        wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:         wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
}
