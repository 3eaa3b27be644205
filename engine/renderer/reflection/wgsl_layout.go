package reflection

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/gogpu/naga/ir"
)

// vectorAlign returns the WGSL alignment of a vector with n components of width bytes each.
// vec3 aligns like vec4.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
func vectorAlign(n ir.VectorSize, width uint8) uint32 {
	if n == ir.Vec2 {
		return 2 * uint32(width)
	}
	return 4 * uint32(width)
}

// typeSize returns the host-shareable byte size of a type. Runtime-sized arrays have no
// fixed size and report ErrUnsizedConstant.
//
// Parameters:
//   - module: the module owning the type arena
//   - handle: the type to size
//
// Returns:
//   - uint32: the byte size
//   - error: an error if the type has no fixed host-shareable size
func typeSize(module *ir.Module, handle ir.TypeHandle) (uint32, error) {
	if int(handle) >= len(module.Types) {
		return 0, fmt.Errorf("type handle %d out of range", handle)
	}
	switch t := module.Types[handle].Inner.(type) {
	case ir.ScalarType:
		return uint32(t.Width), nil
	case ir.AtomicType:
		return uint32(t.Scalar.Width), nil
	case ir.VectorType:
		return uint32(t.Size) * uint32(t.Scalar.Width), nil
	case ir.MatrixType:
		column := common.AlignUp(vectorAlign(t.Rows, t.Scalar.Width), uint32(t.Rows)*uint32(t.Scalar.Width))
		return uint32(t.Columns) * column, nil
	case ir.ArrayType:
		if t.Size.Constant == nil {
			return 0, ErrUnsizedConstant
		}
		stride := t.Stride
		if stride == 0 {
			elem, err := typeSize(module, t.Base)
			if err != nil {
				return 0, err
			}
			stride = elem
		}
		return *t.Size.Constant * stride, nil
	case ir.StructType:
		return t.Span, nil
	default:
		return 0, fmt.Errorf("type %q is not host-shareable", module.Types[handle].Name)
	}
}

// storagePrefixSize returns the fixed-size prefix of a storage buffer type: the struct span up to
// a trailing runtime array, or one element stride for a bare runtime array.
func storagePrefixSize(module *ir.Module, handle ir.TypeHandle) uint32 {
	switch t := module.Types[handle].Inner.(type) {
	case ir.ArrayType:
		if t.Size.Constant == nil {
			return t.Stride
		}
	case ir.StructType:
		if n := len(t.Members); n > 0 {
			last := t.Members[n-1]
			if arr, ok := module.Types[last.Type].Inner.(ir.ArrayType); ok && arr.Size.Constant == nil {
				return last.Offset + arr.Stride
			}
		}
		return t.Span
	}
	size, _ := typeSize(module, handle)
	return size
}
