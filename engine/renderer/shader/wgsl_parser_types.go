package shader

import "github.com/cogentcore/webgpu/wgpu"

// vertexFormatInfo pairs a WGSL vertex input type with its attribute format and byte size.
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// declaration is one resource variable with its classified layout entry.
type declaration struct {
	name    string
	group   uint32
	binding uint32
	entry   wgpu.BindGroupLayoutEntry
}

type parsedField struct {
	name      string
	typeName  string
	location  int // -1 when the field has no @location
	isBuiltin bool
}

// parsedStruct is a struct block as written in the source, fields in declaration order.
type parsedStruct struct {
	name   string
	fields []parsedField
}
