package schema

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
)

var errMapFailed = errors.New("map failed")

type fakeBuffer struct {
	label    string
	mem      []byte
	released int
}

func (b *fakeBuffer) Size() uint32 { return uint32(len(b.mem)) }
func (b *fakeBuffer) Release()     { b.released++ }

type fakeView struct{ name string }

func (v *fakeView) ViewKind() reflection.ResourceKind { return reflection.ResourceSampledTexture }
func (v *fakeView) Release()                          {}

type fakeSampler struct{ name string }

func (s *fakeSampler) Comparison() bool { return false }
func (s *fakeSampler) Release()         {}

// fakeDevice fails the creation whose zero-based index equals failAt; -1 never fails.
type fakeDevice struct {
	created []*fakeBuffer
	failAt  int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{failAt: -1}
}

func (d *fakeDevice) CreateConstantBuffer(label string, size uint32) (ConstantBuffer, error) {
	if len(d.created) == d.failAt {
		return nil, fmt.Errorf("out of memory creating %s", label)
	}
	b := &fakeBuffer{label: label, mem: make([]byte, size)}
	d.created = append(d.created, b)
	return b, nil
}

type setCall struct {
	stage    reflection.Stage
	category Category
	start    uint32
	samplers []Sampler
	views    []ShaderResource
	buffers  []ConstantBuffer
}

// fakeContext records every call. The map call whose zero-based index equals failMapAt fails.
type fakeContext struct {
	mapCalls  int
	unmapped  []*fakeBuffer
	failMapAt int
	calls     []setCall
}

func newFakeContext() *fakeContext {
	return &fakeContext{failMapAt: -1}
}

func (c *fakeContext) MapDiscard(cb ConstantBuffer) ([]byte, error) {
	n := c.mapCalls
	c.mapCalls++
	if n == c.failMapAt {
		return nil, errMapFailed
	}
	b := cb.(*fakeBuffer)
	clear(b.mem)
	return b.mem, nil
}

func (c *fakeContext) Unmap(cb ConstantBuffer) {
	c.unmapped = append(c.unmapped, cb.(*fakeBuffer))
}

func (c *fakeContext) SetSamplers(stage reflection.Stage, start uint32, samplers []Sampler) {
	c.calls = append(c.calls, setCall{stage: stage, category: CategorySampler, start: start, samplers: append([]Sampler(nil), samplers...)})
}

func (c *fakeContext) SetShaderResources(stage reflection.Stage, start uint32, views []ShaderResource) {
	c.calls = append(c.calls, setCall{stage: stage, category: CategoryShaderResource, start: start, views: append([]ShaderResource(nil), views...)})
}

func (c *fakeContext) SetConstantBuffers(stage reflection.Stage, start uint32, buffers []ConstantBuffer) {
	c.calls = append(c.calls, setCall{stage: stage, category: CategoryConstantBuffer, start: start, buffers: append([]ConstantBuffer(nil), buffers...)})
}

func (c *fakeContext) callsFor(stage reflection.Stage, category Category) []setCall {
	var out []setCall
	for _, call := range c.calls {
		if call.stage == stage && call.category == category {
			out = append(out, call)
		}
	}
	return out
}

// fakeReflector serves prepared reflections keyed by blob text and counts calls.
type fakeReflector struct {
	mu    sync.Mutex
	calls int
	refls map[string]*reflection.StageReflection
	err   error
}

func (r *fakeReflector) Reflect(stage reflection.Stage, blob []byte) (*reflection.StageReflection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	refl, ok := r.refls[string(blob)]
	if !ok {
		return &reflection.StageReflection{Stage: stage}, nil
	}
	cp := *refl
	cp.Stage = stage
	return &cp, nil
}

func (r *fakeReflector) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// constBuf is a shorthand for a reflected constant buffer.
func constBuf(name string, slot, size uint32, vars ...reflection.Variable) reflection.ConstantBuffer {
	return reflection.ConstantBuffer{Name: name, Slot: slot, Size: size, Variables: vars}
}

func constVar(name string, offset, size uint32) reflection.Variable {
	return reflection.Variable{Name: name, Offset: offset, Size: size}
}

func tex(name string, slot uint32) reflection.Resource {
	return reflection.Resource{Name: name, Slot: slot, Kind: reflection.ResourceSampledTexture, Dimension: reflection.ViewDimension2D}
}

func smp(name string, slot uint32) reflection.Sampler {
	return reflection.Sampler{Name: name, Slot: slot}
}
