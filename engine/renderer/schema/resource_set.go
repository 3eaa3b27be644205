package schema

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bind/common"
)

// ResourceSet holds the bound state of one draw or dispatch against a Schema: a handle per unique
// sampler and shader resource, the CPU staging block of every constant, and the set's own constant
// buffers. A ResourceSet is not safe for concurrent use.
type ResourceSet interface {
	// Schema returns the schema that created this set.
	Schema() Schema

	// BeginUpdate opens an update batch. It does nothing today and exists so callers bracket their
	// binds the same way on every backend.
	//
	// Parameters:
	//   - ctx: the device context the batch is recorded on
	BeginUpdate(ctx Context)

	// BindSRV binds a shader resource by index. Out-of-range indices resolve to the sentinel, which
	// always stays unbound, so they have no effect.
	//
	// Parameters:
	//   - index: an index from Schema.LookupSRV
	//   - view: the view to bind, or nil to unbind
	BindSRV(index int, view ShaderResource)

	// BindSRVByName looks up name and binds view to it. Unknown names are ignored.
	BindSRVByName(name string, view ShaderResource)

	// BindSampler binds a sampler by index. Out-of-range indices have no effect.
	//
	// Parameters:
	//   - index: an index from Schema.LookupSampler
	//   - sampler: the sampler to bind, or nil to unbind
	BindSampler(index int, sampler Sampler)

	// BindSamplerByName looks up name and binds sampler to it. Unknown names are ignored.
	BindSamplerByName(name string, sampler Sampler)

	// BindConstant copies data into the staging slot of a constant. At most the constant's staging
	// size is copied; shorter data leaves the remaining bytes untouched.
	//
	// Parameters:
	//   - index: an index from Schema.LookupConstant
	//   - data: the raw constant bytes
	BindConstant(index int, data []byte)

	// BindConstantByName looks up name and copies data to it. Unknown names are ignored.
	BindConstantByName(name string, data []byte)

	// EndUpdate uploads the staging block into the set's constant buffers.
	//
	// Parameters:
	//   - ctx: the device context used to map the buffers
	//
	// Returns:
	//   - error: the first map failure; buffers mapped before it are unmapped again
	EndUpdate(ctx Context) error

	// Apply binds every sampler, shader resource and constant buffer of every schema stage with one
	// batched set call per stage and category.
	//
	// Parameters:
	//   - ctx: the device context receiving the set calls
	Apply(ctx Context)

	// Staging returns the staging block. The slice aliases the set's memory.
	Staging() []byte

	// ConstantBuffers returns the set's constant buffers in unique-buffer order.
	ConstantBuffers() []ConstantBuffer

	// Release destroys the set through its schema.
	//
	// Returns:
	//   - error: ErrResourceSetReleased if the set was already destroyed
	Release() error
}

// resourceSet implements the ResourceSet interface.
type resourceSet struct {
	schema *schema

	// samplers and srvs hold one trailing nil entry addressed by the sentinel index.
	samplers []Sampler
	srvs     []ShaderResource
	// buffers holds one trailing nil entry addressed by the buffer sentinel.
	buffers []ConstantBuffer
	mapped  [][]byte
	staging []byte

	scratchSamplers []Sampler
	scratchSRVs     []ShaderResource
	scratchBuffers  []ConstantBuffer

	released bool
}

var _ ResourceSet = &resourceSet{}

func (s *schema) NewResourceSet(device Device) (ResourceSet, error) {
	if device == nil {
		return nil, ErrNilDevice
	}

	rs := &resourceSet{
		schema:          s,
		samplers:        make([]Sampler, len(s.samplerNames)+1),
		srvs:            make([]ShaderResource, len(s.srvNames)+1),
		buffers:         make([]ConstantBuffer, len(s.cbSizes)+1),
		mapped:          make([][]byte, len(s.cbSizes)),
		staging:         make([]byte, s.stagingSize),
		scratchSamplers: make([]Sampler, s.maxCounts[CategorySampler]),
		scratchSRVs:     make([]ShaderResource, s.maxCounts[CategoryShaderResource]),
		scratchBuffers:  make([]ConstantBuffer, s.maxCounts[CategoryConstantBuffer]),
	}

	for i, size := range s.cbSizes {
		label := fmt.Sprintf("%s %s", s.label, s.cbNames[i])
		cb, err := device.CreateConstantBuffer(label, size)
		if err != nil {
			for _, created := range rs.buffers[:i] {
				created.Release()
			}
			common.Logger().Warn("constant buffer creation failed", "schema", s.label, "buffer", s.cbNames[i], "size", size, "error", err)
			return nil, fmt.Errorf("%w: constant buffer %q (%d bytes): %w", ErrResourceCreation, s.cbNames[i], size, err)
		}
		rs.buffers[i] = cb
	}
	return rs, nil
}

func (s *schema) DestroyResourceSet(set ResourceSet) error {
	rs, ok := set.(*resourceSet)
	if !ok || rs == nil || rs.schema != s {
		return ErrForeignResourceSet
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rs.released {
		return ErrResourceSetReleased
	}
	rs.released = true

	for i, cb := range rs.buffers {
		if cb != nil {
			cb.Release()
		}
		rs.buffers[i] = nil
	}
	clear(rs.samplers)
	clear(rs.srvs)
	return nil
}

func (rs *resourceSet) Schema() Schema {
	return rs.schema
}

func (rs *resourceSet) BeginUpdate(ctx Context) {}

func (rs *resourceSet) BindSRV(index int, view ShaderResource) {
	if i := clampIndex(index, len(rs.srvs)-1); i < len(rs.srvs)-1 {
		rs.srvs[i] = view
	}
}

func (rs *resourceSet) BindSRVByName(name string, view ShaderResource) {
	rs.BindSRV(rs.schema.LookupSRV(name), view)
}

func (rs *resourceSet) BindSampler(index int, sampler Sampler) {
	if i := clampIndex(index, len(rs.samplers)-1); i < len(rs.samplers)-1 {
		rs.samplers[i] = sampler
	}
}

func (rs *resourceSet) BindSamplerByName(name string, sampler Sampler) {
	rs.BindSampler(rs.schema.LookupSampler(name), sampler)
}

func (rs *resourceSet) BindConstant(index int, data []byte) {
	uc := rs.schema.staging[clampIndex(index, len(rs.schema.staging)-1)]
	n := min(uint32(len(data)), uc.StageSize)
	copy(rs.staging[uc.StageOffset:uc.StageOffset+n], data[:n])
}

func (rs *resourceSet) BindConstantByName(name string, data []byte) {
	rs.BindConstant(rs.schema.LookupConstant(name), data)
}

// clampIndex maps anything outside [0, sentinel] to sentinel.
func clampIndex(index, sentinel int) int {
	if index < 0 || index > sentinel {
		return sentinel
	}
	return index
}

func (rs *resourceSet) EndUpdate(ctx Context) error {
	if rs.released {
		return ErrResourceSetReleased
	}

	buffers := rs.buffers[:len(rs.mapped)]
	for i, cb := range buffers {
		mem, err := ctx.MapDiscard(cb)
		if err != nil {
			for _, done := range buffers[:i] {
				ctx.Unmap(done)
			}
			clear(rs.mapped)
			return fmt.Errorf("map constant buffer %q: %w", rs.schema.cbNames[i], err)
		}
		rs.mapped[i] = mem
	}

	for _, mv := range rs.schema.movements {
		dst := rs.mapped[mv.BufferIndex]
		if mv.BufferOffset >= uint32(len(dst)) {
			continue
		}
		n := min(mv.Size, uint32(len(dst))-mv.BufferOffset)
		copy(dst[mv.BufferOffset:mv.BufferOffset+n], rs.staging[mv.StageOffset:mv.StageOffset+n])
	}

	for i, cb := range buffers {
		ctx.Unmap(cb)
		rs.mapped[i] = nil
	}
	return nil
}

func (rs *resourceSet) Apply(ctx Context) {
	s := rs.schema
	for _, stage := range s.stages {
		indices := s.stageIndices(stage, CategorySampler)
		samplers := rs.scratchSamplers[:len(indices)]
		for i, idx := range indices {
			samplers[i] = rs.samplers[idx]
		}
		ctx.SetSamplers(stage, 0, samplers)

		indices = s.stageIndices(stage, CategoryShaderResource)
		views := rs.scratchSRVs[:len(indices)]
		for i, idx := range indices {
			views[i] = rs.srvs[idx]
		}
		ctx.SetShaderResources(stage, 0, views)

		indices = s.stageIndices(stage, CategoryConstantBuffer)
		buffers := rs.scratchBuffers[:len(indices)]
		for i, idx := range indices {
			buffers[i] = rs.buffers[idx]
		}
		ctx.SetConstantBuffers(stage, 0, buffers)
	}
}

func (rs *resourceSet) Staging() []byte {
	return rs.staging
}

func (rs *resourceSet) ConstantBuffers() []ConstantBuffer {
	return append([]ConstantBuffer(nil), rs.buffers[:len(rs.mapped)]...)
}

func (rs *resourceSet) Release() error {
	return rs.schema.DestroyResourceSet(rs)
}

