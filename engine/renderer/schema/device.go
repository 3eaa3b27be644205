package schema

import "github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"

// ConstantBuffer is an exclusively owned GPU constant buffer. Resource sets create one per unique
// constant buffer of their schema and release it when the set is destroyed.
type ConstantBuffer interface {
	// Size returns the buffer's byte size.
	Size() uint32

	// Release frees the GPU buffer. The handle must not be used afterwards.
	Release()
}

// ShaderResource is a texture view or storage buffer bound into the shader-resource slots.
// Resource sets never release the views bound to them.
type ShaderResource interface {
	// ViewKind reports which kind of binding the handle satisfies.
	ViewKind() reflection.ResourceKind

	// Release frees the underlying GPU object.
	Release()
}

// Sampler is a GPU sampler bound into the sampler slots.
type Sampler interface {
	// Comparison reports whether this is a comparison sampler.
	Comparison() bool

	// Release frees the underlying GPU object.
	Release()
}

// Device creates the GPU objects a resource set owns.
type Device interface {
	// CreateConstantBuffer creates a constant buffer of size bytes that can be mapped for writing.
	//
	// Parameters:
	//   - label: a debug label for the buffer
	//   - size: the buffer size in bytes, a multiple of 16
	//
	// Returns:
	//   - ConstantBuffer: the created buffer
	//   - error: an error if the GPU object could not be created
	CreateConstantBuffer(label string, size uint32) (ConstantBuffer, error)
}

// Context is the device-context side of binding: mapping constant buffers and issuing the batched
// per-stage set calls. Slices passed to the Set methods are only valid for the duration of the call.
type Context interface {
	// MapDiscard maps a constant buffer for writing, discarding its previous contents.
	//
	// Parameters:
	//   - cb: the buffer to map
	//
	// Returns:
	//   - []byte: writable memory of cb.Size() bytes, valid until Unmap
	//   - error: an error if the buffer could not be mapped
	MapDiscard(cb ConstantBuffer) ([]byte, error)

	// Unmap publishes the bytes written since MapDiscard.
	//
	// Parameters:
	//   - cb: a buffer previously mapped with MapDiscard
	Unmap(cb ConstantBuffer)

	// SetSamplers binds samplers to consecutive slots of a stage starting at start. Nil entries unbind.
	SetSamplers(stage reflection.Stage, start uint32, samplers []Sampler)

	// SetShaderResources binds views to consecutive slots of a stage starting at start. Nil entries unbind.
	SetShaderResources(stage reflection.Stage, start uint32, views []ShaderResource)

	// SetConstantBuffers binds constant buffers to consecutive slots of a stage starting at start. Nil entries unbind.
	SetConstantBuffers(stage reflection.Stage, start uint32, buffers []ConstantBuffer)
}
