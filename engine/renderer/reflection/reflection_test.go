package reflection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const texturedQuadWGSL = `
struct Transforms {
    g_ViewProj: mat4x4<f32>,
    g_World: mat4x4<f32>,
}

struct Tint {
    color: vec4<f32>,
    strength: f32,
}

@group(0) @binding(0) var<uniform> transforms: Transforms;
@group(0) @binding(1) var<uniform> tint: Tint;
@group(1) @binding(0) var tTexture: texture_2d<f32>;
@group(1) @binding(1) var sSampler: sampler;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@location(0) pos: vec3<f32>, @location(1) uv: vec2<f32>) -> VertexOutput {
    return VertexOutput(transforms.g_ViewProj * transforms.g_World * vec4<f32>(pos, 1.0), uv);
}

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(tTexture, sSampler, uv) * tint.color * tint.strength;
}
`

const scaleComputeWGSL = `
struct Params {
    count: u32,
    scale: f32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> src: array<f32>;
@group(0) @binding(2) var<storage, read_write> dst: array<f32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    let i = id.x;
    if (i < params.count) {
        dst[i] = src[i] * params.scale;
    }
}
`

func TestReflectVertexStage(t *testing.T) {
	r := NewReflector()
	refl, err := r.Reflect(StageVertex, []byte(texturedQuadWGSL))
	require.NoError(t, err)

	assert.Equal(t, StageVertex, refl.Stage)
	assert.Equal(t, "vs_main", refl.EntryPoint)
	require.Len(t, refl.ConstantBuffers, 1)

	cb := refl.ConstantBuffers[0]
	assert.Equal(t, "transforms", cb.Name)
	assert.Equal(t, SlotOf(0, 0), cb.Slot)
	assert.Equal(t, uint32(128), cb.Size)
	assert.Equal(t, []Variable{
		{Name: "g_ViewProj", Offset: 0, Size: 64},
		{Name: "g_World", Offset: 64, Size: 64},
	}, cb.Variables)

	assert.Empty(t, refl.Resources, "texture is only used by the fragment entry point")
	assert.Empty(t, refl.Samplers)
}

func TestReflectFragmentStage(t *testing.T) {
	r := NewReflector()
	refl, err := r.Reflect(StageFragment, []byte(texturedQuadWGSL))
	require.NoError(t, err)

	assert.Equal(t, "fs_main", refl.EntryPoint)
	require.Len(t, refl.ConstantBuffers, 1)
	cb := refl.ConstantBuffers[0]
	assert.Equal(t, "tint", cb.Name)
	assert.Equal(t, SlotOf(0, 1), cb.Slot)
	assert.Equal(t, uint32(32), cb.Size)
	assert.Equal(t, []Variable{
		{Name: "color", Offset: 0, Size: 16},
		{Name: "strength", Offset: 16, Size: 4},
	}, cb.Variables)

	require.Len(t, refl.Resources, 1)
	assert.Equal(t, Resource{
		Name:      "tTexture",
		Slot:      SlotOf(1, 0),
		Kind:      ResourceSampledTexture,
		Dimension: ViewDimension2D,
	}, refl.Resources[0])

	require.Len(t, refl.Samplers, 1)
	assert.Equal(t, Sampler{Name: "sSampler", Slot: SlotOf(1, 1)}, refl.Samplers[0])
}

func TestReflectAllGlobals(t *testing.T) {
	r := NewReflector(WithAllGlobals(true))
	refl, err := r.Reflect(StageVertex, []byte(texturedQuadWGSL))
	require.NoError(t, err)

	assert.Len(t, refl.ConstantBuffers, 2)
	assert.Len(t, refl.Resources, 1)
	assert.Len(t, refl.Samplers, 1)
}

func TestReflectComputeStage(t *testing.T) {
	refl, err := NewReflector().Reflect(StageCompute, []byte(scaleComputeWGSL))
	require.NoError(t, err)

	assert.Equal(t, "main", refl.EntryPoint)
	assert.Equal(t, uint32(64), refl.Workgroup[0])

	require.Len(t, refl.ConstantBuffers, 1)
	assert.Equal(t, uint32(16), refl.ConstantBuffers[0].Size)
	assert.Equal(t, []Variable{
		{Name: "count", Offset: 0, Size: 4},
		{Name: "scale", Offset: 4, Size: 4},
	}, refl.ConstantBuffers[0].Variables)

	require.Len(t, refl.Resources, 2)
	assert.Equal(t, "src", refl.Resources[0].Name)
	assert.Equal(t, ResourceReadOnlyStorageBuffer, refl.Resources[0].Kind)
	assert.Equal(t, "dst", refl.Resources[1].Name)
	assert.Equal(t, ResourceStorageBuffer, refl.Resources[1].Kind)
	assert.True(t, refl.Resources[1].Kind.IsBuffer())
}

func TestReflectScalarUniform(t *testing.T) {
	src := `
@group(0) @binding(3) var<uniform> g_Time: vec4<f32>;

@fragment
fn main() -> @location(0) vec4<f32> {
    return g_Time;
}
`
	refl, err := NewReflector().Reflect(StageFragment, []byte(src))
	require.NoError(t, err)
	require.Len(t, refl.ConstantBuffers, 1)
	assert.Equal(t, ConstantBuffer{
		Name:      "g_Time",
		Slot:      3,
		Size:      16,
		Variables: []Variable{{Name: "g_Time", Offset: 0, Size: 16}},
	}, refl.ConstantBuffers[0])
}

func TestReflectEmptyBlob(t *testing.T) {
	refl, err := NewReflector().Reflect(StageFragment, nil)
	require.NoError(t, err)
	assert.True(t, refl.Empty())
	assert.Equal(t, StageFragment, refl.Stage)
}

func TestReflectFailures(t *testing.T) {
	r := NewReflector()

	_, err := r.Reflect(StageVertex, []byte("fn broken( {"))
	assert.ErrorIs(t, err, ErrReflection)

	_, err = r.Reflect(StageCompute, []byte(texturedQuadWGSL))
	assert.ErrorIs(t, err, ErrReflection)
	assert.ErrorIs(t, err, ErrNoEntryPoint)

	_, err = NewReflector(WithEntryPoint("missing")).Reflect(StageVertex, []byte(texturedQuadWGSL))
	assert.ErrorIs(t, err, ErrNoEntryPoint)

	wide := `
@group(0) @binding(16) var<uniform> g_Far: vec4<f32>;

@fragment
fn main() -> @location(0) vec4<f32> {
    return g_Far;
}
`
	_, err = r.Reflect(StageFragment, []byte(wide))
	assert.ErrorIs(t, err, ErrSlotOutOfRange)
}

func TestReflectLastBindingInGroup(t *testing.T) {
	r := NewReflector()
	refl, err := r.Reflect(StageFragment, []byte(`
@group(1) @binding(15) var<uniform> g_Edge: vec4<f32>;

@fragment
fn main() -> @location(0) vec4<f32> {
    return g_Edge;
}
`))
	require.NoError(t, err)
	require.Len(t, refl.ConstantBuffers, 1)
	assert.Equal(t, SlotOf(1, SlotsPerGroup-1), refl.ConstantBuffers[0].Slot)
	assert.Equal(t, uint32(31), refl.ConstantBuffers[0].Slot)
}

func TestSlotRoundTrip(t *testing.T) {
	slot := SlotOf(2, 5)
	assert.Equal(t, uint32(37), slot)
	g, b := SplitSlot(slot)
	assert.Equal(t, uint32(2), g)
	assert.Equal(t, uint32(5), b)
}

func TestReflectStorageAccessModes(t *testing.T) {
	r := NewReflector()
	refl, err := r.Reflect(StageCompute, []byte(`
// var<storage, read_write> commented: array<f32>;
@group(0) @binding(0) var<storage> plain: array<f32>;
@group(0) @binding(1) var<storage, read_write> dst: array<f32>;
@group(0) @binding(2) var<storage, read> ro: array<f32>;

@compute @workgroup_size(1)
fn main() {
    dst[0] = plain[0] + ro[0];
}
`))
	require.NoError(t, err)
	require.Len(t, refl.Resources, 3)
	assert.Equal(t, "plain", refl.Resources[0].Name)
	assert.Equal(t, ResourceReadOnlyStorageBuffer, refl.Resources[0].Kind)
	assert.Equal(t, "dst", refl.Resources[1].Name)
	assert.Equal(t, ResourceStorageBuffer, refl.Resources[1].Kind)
	assert.Equal(t, "ro", refl.Resources[2].Name)
	assert.Equal(t, ResourceReadOnlyStorageBuffer, refl.Resources[2].Kind)
}

func TestReflectGlobalsReachedThroughHelpers(t *testing.T) {
	r := NewReflector()
	refl, err := r.Reflect(StageFragment, []byte(`
struct Light {
    color: vec4<f32>,
}

@group(0) @binding(0) var<uniform> light: Light;
@group(0) @binding(1) var albedo: texture_2d<f32>;
@group(0) @binding(2) var linearSampler: sampler;
@group(0) @binding(3) var unused: texture_2d<f32>;

fn lightColor() -> vec4<f32> {
    return light.color;
}

fn shade(uv: vec2<f32>) -> vec4<f32> {
    return textureSample(albedo, linearSampler, uv) * lightColor();
}

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return shade(uv);
}
`))
	require.NoError(t, err)

	assert.Equal(t, "fs_main", refl.EntryPoint)
	require.Len(t, refl.ConstantBuffers, 1)
	assert.Equal(t, "light", refl.ConstantBuffers[0].Name)
	require.Len(t, refl.Resources, 1)
	assert.Equal(t, "albedo", refl.Resources[0].Name)
	require.Len(t, refl.Samplers, 1)
	assert.Equal(t, "linearSampler", refl.Samplers[0].Name)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "vertex", StageVertex.String())
	assert.Equal(t, "compute", StageCompute.String())
	assert.Equal(t, "stage(7)", Stage(7).String())
}
