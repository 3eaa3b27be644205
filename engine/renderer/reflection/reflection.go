// Package reflection extracts per-stage binding metadata (constant buffers, shader resources and
// samplers) from WGSL shader sources. The result feeds the schema builder, which never looks at
// shader text itself.
package reflection

import "fmt"

// Stage identifies one programmable pipeline stage.
type Stage int

const (
	// StageVertex is the vertex stage of a render pipeline.
	StageVertex Stage = iota

	// StageFragment is the fragment stage of a render pipeline.
	StageFragment

	// StageCompute is the single stage of a compute pipeline.
	StageCompute

	// StageCount is the number of stages; it is not a valid Stage.
	StageCount
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// SlotsPerGroup is the number of binding numbers reserved per WebGPU bind group when
// flattening (group, binding) pairs into a single slot index.
const SlotsPerGroup = 16

// SlotOf flattens a WebGPU (group, binding) pair into a slot index. Bindings are limited to
// 0..SlotsPerGroup-1 even though WebGPU allows up to 1000 per group: a stage's bind span runs
// from its lowest to its highest slot, so a wider stride would turn every span crossing a group
// boundary into a mostly empty range. Reflect rejects larger bindings with ErrSlotOutOfRange.
//
// Parameters:
//   - group: the @group index
//   - binding: the @binding index, must be below SlotsPerGroup
//
// Returns:
//   - uint32: the flattened slot
func SlotOf(group, binding uint32) uint32 {
	return group*SlotsPerGroup + binding
}

// SplitSlot is the inverse of SlotOf.
//
// Parameters:
//   - slot: a slot produced by SlotOf
//
// Returns:
//   - group: the @group index
//   - binding: the @binding index
func SplitSlot(slot uint32) (group, binding uint32) {
	return slot / SlotsPerGroup, slot % SlotsPerGroup
}

// ResourceKind classifies a shader-resource-view binding.
type ResourceKind int

const (
	ResourceSampledTexture ResourceKind = iota
	ResourceDepthTexture
	ResourceStorageTexture
	ResourceStorageBuffer
	ResourceReadOnlyStorageBuffer
)

// IsBuffer reports whether the resource is a storage buffer of either access mode.
func (k ResourceKind) IsBuffer() bool {
	return k == ResourceStorageBuffer || k == ResourceReadOnlyStorageBuffer
}

// ViewDimension is the dimensionality of a texture binding.
type ViewDimension int

const (
	ViewDimension1D ViewDimension = iota
	ViewDimension2D
	ViewDimension2DArray
	ViewDimension3D
	ViewDimensionCube
	ViewDimensionCubeArray
)

// Variable is one named constant inside a constant buffer.
type Variable struct {
	Name   string
	Offset uint32
	Size   uint32
}

// ConstantBuffer is a var<uniform> binding and the constants it holds, in declaration order.
type ConstantBuffer struct {
	Name string
	Slot uint32
	// Size is the buffer byte size rounded up to 16.
	Size      uint32
	Variables []Variable
}

// Resource is a texture or storage-buffer binding.
type Resource struct {
	Name         string
	Slot         uint32
	Kind         ResourceKind
	Dimension    ViewDimension
	Multisampled bool
	// MinBindingSize is the fixed-size prefix of a storage buffer; zero for textures.
	MinBindingSize uint32
}

// Sampler is a sampler or sampler_comparison binding.
type Sampler struct {
	Name       string
	Slot       uint32
	Comparison bool
}

// StageReflection is everything one stage binds. An empty reflection describes an absent stage.
type StageReflection struct {
	Stage           Stage
	EntryPoint      string
	Workgroup       [3]uint32
	ConstantBuffers []ConstantBuffer
	Resources       []Resource
	Samplers        []Sampler
}

// Empty reports whether the stage binds nothing.
func (r *StageReflection) Empty() bool {
	return r == nil || len(r.ConstantBuffers) == 0 && len(r.Resources) == 0 && len(r.Samplers) == 0
}

// Reflector extracts binding metadata from a compiled shader blob for one stage.
type Reflector interface {
	// Reflect enumerates the constant buffers, shader resources and samplers the given stage uses.
	// A nil or empty blob yields an empty reflection for the stage.
	//
	// Parameters:
	//   - stage: the stage whose entry point is reflected
	//   - blob: the WGSL source bytes
	//
	// Returns:
	//   - *StageReflection: the stage's bindings
	//   - error: an error wrapping ErrReflection when the blob cannot be parsed or laid out
	Reflect(stage Stage, blob []byte) (*StageReflection, error)
}
