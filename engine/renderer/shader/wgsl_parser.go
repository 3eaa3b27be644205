package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
	"github.com/cogentcore/webgpu/wgpu"
)

// vertexFormats maps WGSL vertex input types to their wgpu format and byte size. Both the
// templated (vec3<f32>) and the alias (vec3f) spellings are registered.
var vertexFormats = buildVertexFormats()

func buildVertexFormats() map[string]vertexFormatInfo {
	type scalar struct {
		name, suffix string
		formats      [4]wgpu.VertexFormat
	}
	scalars := []scalar{
		{"f32", "f", [4]wgpu.VertexFormat{wgpu.VertexFormatFloat32, wgpu.VertexFormatFloat32x2, wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x4}},
		{"i32", "i", [4]wgpu.VertexFormat{wgpu.VertexFormatSint32, wgpu.VertexFormatSint32x2, wgpu.VertexFormatSint32x3, wgpu.VertexFormatSint32x4}},
		{"u32", "u", [4]wgpu.VertexFormat{wgpu.VertexFormatUint32, wgpu.VertexFormatUint32x2, wgpu.VertexFormatUint32x3, wgpu.VertexFormatUint32x4}},
	}

	out := make(map[string]vertexFormatInfo)
	for _, sc := range scalars {
		out[sc.name] = vertexFormatInfo{sc.formats[0], 4}
		for n := 2; n <= 4; n++ {
			info := vertexFormatInfo{sc.formats[n-1], uint64(4 * n)}
			out["vec"+strconv.Itoa(n)+"<"+sc.name+">"] = info
			out["vec"+strconv.Itoa(n)+sc.suffix] = info
		}
	}
	// f16 only has two- and four-component vertex formats.
	out["vec2<f16>"], out["vec2h"] = vertexFormatInfo{wgpu.VertexFormatFloat16x2, 4}, vertexFormatInfo{wgpu.VertexFormatFloat16x2, 4}
	out["vec4<f16>"], out["vec4h"] = vertexFormatInfo{wgpu.VertexFormatFloat16x4, 8}, vertexFormatInfo{wgpu.VertexFormatFloat16x4, 8}
	return out
}

// textureDimensions maps the dimension suffix shared by every texture type family to its view dimension.
var textureDimensions = map[string]wgpu.TextureViewDimension{
	"1d":         wgpu.TextureViewDimension1D,
	"2d":         wgpu.TextureViewDimension2D,
	"2d_array":   wgpu.TextureViewDimension2DArray,
	"3d":         wgpu.TextureViewDimension3D,
	"cube":       wgpu.TextureViewDimensionCube,
	"cube_array": wgpu.TextureViewDimensionCubeArray,
}

var sampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var storageAccess = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

// texelFormats lists the formats WGSL allows for storage textures.
var texelFormats = map[string]wgpu.TextureFormat{
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"rgba8snorm":  wgpu.TextureFormatRGBA8Snorm,
	"rgba8uint":   wgpu.TextureFormatRGBA8Uint,
	"rgba8sint":   wgpu.TextureFormatRGBA8Sint,
	"rgba16uint":  wgpu.TextureFormatRGBA16Uint,
	"rgba16sint":  wgpu.TextureFormatRGBA16Sint,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"r32uint":     wgpu.TextureFormatR32Uint,
	"r32sint":     wgpu.TextureFormatR32Sint,
	"r32float":    wgpu.TextureFormatR32Float,
	"rg32uint":    wgpu.TextureFormatRG32Uint,
	"rg32sint":    wgpu.TextureFormatRG32Sint,
	"rg32float":   wgpu.TextureFormatRG32Float,
	"rgba32uint":  wgpu.TextureFormatRGBA32Uint,
	"rgba32sint":  wgpu.TextureFormatRGBA32Sint,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
	"bgra8unorm":  wgpu.TextureFormatBGRA8Unorm,
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// computeEntryRegex matches @compute functions and captures the entry point name
	computeEntryRegex = regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> transforms: Transforms;
	// or handle types: @group(1) @binding(0) var tTexture: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseVertexLayouts extracts one vertex buffer layout per vertex input struct, that is every struct
// with @location fields and no @builtin field. Structs with a field type that has no vertex format
// are skipped.
//
// Parameters:
//   - source: the WGSL source code
//
// Returns:
//   - map[int][]wgpu.VertexBufferLayout: vertex layouts keyed by declaration order
func parseVertexLayouts(source string) map[int][]wgpu.VertexBufferLayout {
	result := make(map[int][]wgpu.VertexBufferLayout)
	structs := parseStructBlocks(reflection.StripComments(source))

	layoutIndex := 0
	for _, ps := range structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		layout, ok := buildVertexBufferLayout(ps)
		if !ok {
			continue
		}
		result[layoutIndex] = []wgpu.VertexBufferLayout{layout}
		layoutIndex++
	}
	return result
}

// parseBindGroupLayouts classifies every @group/@binding declaration and keeps those the stage
// reflection reports as used. Buffer entries take their MinBindingSize from the reflection, which
// knows the real struct layout.
//
// Parameters:
//   - source: the WGSL source code
//   - visibility: the stage visibility set on each entry
//   - refl: the reflection of the stage's entry point
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: entries sorted by binding, keyed by group index
//   - map[int]map[int]string: variable names keyed by group and binding index
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage, refl *reflection.StageReflection) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	used := usedBindingSizes(refl)
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	varNames := make(map[int]map[int]string)

	for _, d := range parseDeclarations(reflection.StripComments(source), visibility) {
		size, ok := used[reflection.SlotOf(d.group, d.binding)]
		if !ok {
			continue
		}
		if d.entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			d.entry.Buffer.MinBindingSize = size
		}

		g := int(d.group)
		groups[g] = append(groups[g], d.entry)
		if varNames[g] == nil {
			varNames[g] = make(map[int]string)
		}
		varNames[g][int(d.binding)] = d.name
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result, varNames
}

// parseDeclarations classifies every @group/@binding variable in comment-free source.
func parseDeclarations(cleaned string, visibility wgpu.ShaderStage) []declaration {
	matches := bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1)
	out := make([]declaration, 0, len(matches))
	for _, match := range matches {
		group, _ := strconv.ParseUint(match[1], 10, 32)
		binding, _ := strconv.ParseUint(match[2], 10, 32)
		out = append(out, declaration{
			name:    strings.TrimSpace(match[4]),
			group:   uint32(group),
			binding: uint32(binding),
			entry:   classifyResource(uint32(binding), visibility, strings.TrimSpace(match[3]), strings.TrimSpace(match[5])),
		})
	}
	return out
}

// usedBindingSizes maps every slot the reflection reports to its minimum binding size.
func usedBindingSizes(refl *reflection.StageReflection) map[uint32]uint64 {
	used := make(map[uint32]uint64)
	if refl == nil {
		return used
	}
	for _, cb := range refl.ConstantBuffers {
		used[cb.Slot] = uint64(cb.Size)
	}
	for _, r := range refl.Resources {
		used[r.Slot] = uint64(r.MinBindingSize)
	}
	for _, s := range refl.Samplers {
		used[s.Slot] = 0
	}
	return used
}

// parseWorkgroupSize extracts the @workgroup_size(x, y, z) dimensions. Omitted dimensions default
// to 1, as does a missing attribute.
//
// Parameters:
//   - source: the WGSL source code
//
// Returns:
//   - [3]uint32: the workgroup size as [x, y, z]
func parseWorkgroupSize(source string) [3]uint32 {
	result := [3]uint32{1, 1, 1}
	match := workgroupSizeRegex.FindStringSubmatch(reflection.StripComments(source))
	if match == nil {
		return result
	}
	for i := range result {
		if match[i+1] == "" {
			continue
		}
		if v, err := strconv.ParseUint(match[i+1], 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}
	return result
}

// parseEntryPoint returns the name of the first entry point declared for the stage, or "".
func parseEntryPoint(source string, stage reflection.Stage) string {
	var re *regexp.Regexp
	switch stage {
	case reflection.StageVertex:
		re = vertexEntryRegex
	case reflection.StageFragment:
		re = fragmentEntryRegex
	case reflection.StageCompute:
		re = computeEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(reflection.StripComments(source)); match != nil {
		return match[1]
	}
	return ""
}

// parseStructBlocks finds every struct block in comment-free source.
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

// parseStructFields splits a struct body into fields with their @location and @builtin markers.
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{location: -1, isBuiltin: builtinRegex.MatchString(line)}
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}
	return fields
}
