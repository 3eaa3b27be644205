package shader

import (
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// classifyResource builds the layout entry of one declaration from its address space and type.
//
// Parameters:
//   - binding: the binding index from @binding(N)
//   - visibility: the shader stage visibility flag
//   - addressSpace: the var<...> qualifier (e.g. "uniform", "storage, read_write"), empty for handle types
//   - typeName: the WGSL type string (e.g. "Transforms", "texture_2d<f32>", "sampler")
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the populated layout entry
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}

	if addressSpace != "" {
		entry.Buffer.Type = bufferBindingType(addressSpace)
		return entry
	}

	base, params := splitTypeParams(typeName)
	switch {
	case base == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case base == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(base, "texture_storage_"):
		entry.StorageTexture = storageTextureLayout(strings.TrimPrefix(base, "texture_storage_"), params)
	case strings.HasPrefix(base, "texture_depth_"):
		entry.Texture = textureLayout(strings.TrimPrefix(base, "texture_depth_"), wgpu.TextureSampleTypeDepth)
	case strings.HasPrefix(base, "texture_"):
		sampleType, ok := sampleTypes[params]
		if !ok {
			sampleType = wgpu.TextureSampleTypeFloat
		}
		entry.Texture = textureLayout(strings.TrimPrefix(base, "texture_"), sampleType)
	}
	return entry
}

// bufferBindingType maps a var<...> qualifier to the buffer binding type. Storage buffers are
// read-only unless declared read_write.
func bufferBindingType(addressSpace string) wgpu.BufferBindingType {
	switch {
	case addressSpace == "uniform":
		return wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage") && strings.Contains(addressSpace, "read_write"):
		return wgpu.BufferBindingTypeStorage
	case strings.HasPrefix(addressSpace, "storage"):
		return wgpu.BufferBindingTypeReadOnlyStorage
	default:
		return wgpu.BufferBindingTypeUndefined
	}
}

// textureLayout handles both sampled and depth families. dim is the type name with its family
// prefix removed, e.g. "2d_array" or "multisampled_2d".
func textureLayout(dim string, sampleType wgpu.TextureSampleType) wgpu.TextureBindingLayout {
	layout := wgpu.TextureBindingLayout{SampleType: sampleType}
	if rest, ok := strings.CutPrefix(dim, "multisampled_"); ok {
		layout.Multisampled = true
		dim = rest
	}
	layout.ViewDimension = textureDimensions[dim]
	return layout
}

// storageTextureLayout parses the "<format, access>" parameters of a storage texture.
func storageTextureLayout(dim, params string) wgpu.StorageTextureBindingLayout {
	layout := wgpu.StorageTextureBindingLayout{ViewDimension: textureDimensions[dim]}
	format, access, _ := strings.Cut(params, ",")
	layout.Format = texelFormats[strings.TrimSpace(format)]
	layout.Access = storageAccess[strings.TrimSpace(access)]
	return layout
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32"). Types without parameters
// return an empty parameter string.
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return strings.TrimSpace(typeName), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// isVertexInputStruct reports whether a struct has @location fields and no @builtin field, which
// separates vertex inputs from vertex outputs carrying @builtin(position).
func isVertexInputStruct(ps parsedStruct) bool {
	hasLocation := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		hasLocation = hasLocation || f.location >= 0
	}
	return hasLocation
}

// buildVertexBufferLayout packs the struct's fields in declaration order. It fails when a field
// type has no vertex format.
func buildVertexBufferLayout(ps parsedStruct) (wgpu.VertexBufferLayout, bool) {
	layout := wgpu.VertexBufferLayout{
		StepMode:   wgpu.VertexStepModeVertex,
		Attributes: make([]wgpu.VertexAttribute, 0, len(ps.fields)),
	}
	for _, f := range ps.fields {
		info, ok := vertexFormats[f.typeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		layout.Attributes = append(layout.Attributes, wgpu.VertexAttribute{
			Format:         info.format,
			Offset:         layout.ArrayStride,
			ShaderLocation: uint32(f.location),
		})
		layout.ArrayStride += info.size
	}
	return layout, true
}

// splitAtTopLevelCommas splits at commas outside angle brackets, so array<T, N> stays whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth = max(depth-1, 0)
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
