package renderer

import (
	"encoding/binary"
	"fmt"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/schema"
	"github.com/cogentcore/webgpu/wgpu"
)

// stageSlots is the bound state of one stage, indexed by flattened slot.
type stageSlots struct {
	samplers []schema.Sampler
	views    []schema.ShaderResource
	buffers  []schema.ConstantBuffer
}

// bindTables records what the per-stage Set calls bound. WebGPU has no per-slot binding, so the
// tables are read back when a draw or dispatch assembles its bind groups.
type bindTables struct {
	stages [reflection.StageCount]stageSlots
}

func setSlots[T any](dst []T, start uint32, src []T) []T {
	end := int(start) + len(src)
	if end > len(dst) {
		dst = append(dst, make([]T, end-len(dst))...)
	}
	copy(dst[start:], src)
	return dst
}

func validStage(stage reflection.Stage) bool {
	return stage >= 0 && stage < reflection.StageCount
}

func (t *bindTables) setSamplers(stage reflection.Stage, start uint32, samplers []schema.Sampler) {
	if validStage(stage) {
		t.stages[stage].samplers = setSlots(t.stages[stage].samplers, start, samplers)
	}
}

func (t *bindTables) setViews(stage reflection.Stage, start uint32, views []schema.ShaderResource) {
	if validStage(stage) {
		t.stages[stage].views = setSlots(t.stages[stage].views, start, views)
	}
}

func (t *bindTables) setBuffers(stage reflection.Stage, start uint32, buffers []schema.ConstantBuffer) {
	if validStage(stage) {
		t.stages[stage].buffers = setSlots(t.stages[stage].buffers, start, buffers)
	}
}

// forget unbinds every slot holding the handle with the given id.
func (t *bindTables) forget(id uint64) {
	for s := range t.stages {
		st := &t.stages[s]
		for i, h := range st.samplers {
			if sameHandle(h, id) {
				st.samplers[i] = nil
			}
		}
		for i, h := range st.views {
			if sameHandle(h, id) {
				st.views[i] = nil
			}
		}
		for i, h := range st.buffers {
			if sameHandle(h, id) {
				st.buffers[i] = nil
			}
		}
	}
}

func sameHandle(v any, id uint64) bool {
	h, ok := v.(handle)
	return ok && h.handleID() == id
}

// lookup returns the handle bound to a slot of a stage, nil when the slot is empty.
func (t *bindTables) lookup(stage reflection.Stage, category schema.Category, slot uint32) (any, error) {
	st := &t.stages[stage]
	var v any
	switch category {
	case schema.CategorySampler:
		if int(slot) < len(st.samplers) && st.samplers[slot] != nil {
			v = st.samplers[slot]
		}
	case schema.CategoryShaderResource:
		if int(slot) < len(st.views) && st.views[slot] != nil {
			v = st.views[slot]
		}
	case schema.CategoryConstantBuffer:
		if int(slot) < len(st.buffers) && st.buffers[slot] != nil {
			v = st.buffers[slot]
		}
	}
	if v == nil {
		return nil, nil
	}
	if _, ok := v.(handle); !ok {
		return nil, fmt.Errorf("%w: %T", ErrForeignHandle, v)
	}
	return v, nil
}

// resolve finds the handle for one layout entry. Every stage in the entry's visibility uses the
// binding, so each of them must have the same handle bound or none at all.
//
// Parameters:
//   - group: the bind group index of the entry
//   - entry: the layout entry
//
// Returns:
//   - any: the bound handle, implementing handle and one of the schema handle interfaces
//   - error: ErrUnsupportedBinding, ErrForeignHandle, ErrBindingConflict, ErrHandleKind or ErrUnboundResource
func (t *bindTables) resolve(group uint32, entry wgpu.BindGroupLayoutEntry) (any, error) {
	category, ok := entryCategory(entry)
	if !ok {
		return nil, fmt.Errorf("%w: group %d binding %d", ErrUnsupportedBinding, group, entry.Binding)
	}
	slot := reflection.SlotOf(group, entry.Binding)

	var found any
	for _, stage := range visibleStages(entry.Visibility) {
		v, err := t.lookup(stage, category, slot)
		if err != nil {
			return nil, fmt.Errorf("group %d binding %d: %w", group, entry.Binding, err)
		}
		if v == nil {
			continue
		}
		if found != nil && found.(handle).handleID() != v.(handle).handleID() {
			return nil, fmt.Errorf("%w: group %d binding %d", ErrBindingConflict, group, entry.Binding)
		}
		found = v
	}
	if found == nil {
		return nil, fmt.Errorf("%w: group %d binding %d (%s)", ErrUnboundResource, group, entry.Binding, category)
	}
	if err := checkKind(entry, found); err != nil {
		return nil, fmt.Errorf("group %d binding %d: %w", group, entry.Binding, err)
	}
	return found, nil
}

// entryCategory maps a layout entry to the slot space the schema binds it through.
func entryCategory(entry wgpu.BindGroupLayoutEntry) (schema.Category, bool) {
	switch {
	case entry.Buffer.Type == wgpu.BufferBindingTypeUniform:
		return schema.CategoryConstantBuffer, true
	case entry.Buffer.Type == wgpu.BufferBindingTypeStorage,
		entry.Buffer.Type == wgpu.BufferBindingTypeReadOnlyStorage:
		return schema.CategoryShaderResource, true
	case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
		return schema.CategoryShaderResource, true
	case entry.StorageTexture.Access != wgpu.StorageTextureAccessUndefined:
		return schema.CategoryShaderResource, true
	case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
		return schema.CategorySampler, true
	}
	return 0, false
}

func checkKind(entry wgpu.BindGroupLayoutEntry, v any) error {
	switch h := v.(type) {
	case schema.ShaderResource:
		wantBuffer := entry.Buffer.Type != wgpu.BufferBindingTypeUndefined
		if h.ViewKind().IsBuffer() != wantBuffer {
			return fmt.Errorf("%w: %T for %s", ErrHandleKind, v, describeEntry(entry))
		}
		if entry.Buffer.Type == wgpu.BufferBindingTypeStorage && h.ViewKind() == reflection.ResourceReadOnlyStorageBuffer {
			return fmt.Errorf("%w: read-only buffer for a read_write binding", ErrHandleKind)
		}
	case schema.Sampler:
		wantComparison := entry.Sampler.Type == wgpu.SamplerBindingTypeComparison
		if h.Comparison() != wantComparison {
			return fmt.Errorf("%w: comparison sampler mismatch", ErrHandleKind)
		}
	}
	return nil
}

func describeEntry(entry wgpu.BindGroupLayoutEntry) string {
	switch {
	case entry.Buffer.Type != wgpu.BufferBindingTypeUndefined:
		return "buffer binding"
	case entry.StorageTexture.Access != wgpu.StorageTextureAccessUndefined:
		return "storage texture binding"
	default:
		return "texture binding"
	}
}

// visibleStages lists the stages in a visibility mask in stage order.
func visibleStages(v wgpu.ShaderStage) []reflection.Stage {
	stages := make([]reflection.Stage, 0, reflection.StageCount)
	if v&wgpu.ShaderStageVertex != 0 {
		stages = append(stages, reflection.StageVertex)
	}
	if v&wgpu.ShaderStageFragment != 0 {
		stages = append(stages, reflection.StageFragment)
	}
	if v&wgpu.ShaderStageCompute != 0 {
		stages = append(stages, reflection.StageCompute)
	}
	return stages
}

// groupKey identifies a bind group by its layout and the ids and versions of the handles in
// entry order.
type groupKey struct {
	layout *wgpu.BindGroupLayout
	ids    string
}

func makeGroupKey(layout *wgpu.BindGroupLayout, handles []any) groupKey {
	buf := make([]byte, 0, 12*len(handles))
	for _, h := range handles {
		buf = binary.LittleEndian.AppendUint64(buf, h.(handle).handleID())
		var v uint32
		if vh, ok := h.(versioned); ok {
			v = vh.version()
		}
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	return groupKey{layout: layout, ids: string(buf)}
}

// bindGroupCache holds assembled bind groups and which handles each depends on.
type bindGroupCache struct {
	groups   map[groupKey]*wgpu.BindGroup
	byHandle map[uint64][]groupKey
}

func newBindGroupCache() *bindGroupCache {
	return &bindGroupCache{
		groups:   make(map[groupKey]*wgpu.BindGroup),
		byHandle: make(map[uint64][]groupKey),
	}
}

func (c *bindGroupCache) get(key groupKey) (*wgpu.BindGroup, bool) {
	bg, ok := c.groups[key]
	return bg, ok
}

func (c *bindGroupCache) put(key groupKey, bg *wgpu.BindGroup, handles []any) {
	c.groups[key] = bg
	for _, h := range handles {
		id := h.(handle).handleID()
		c.byHandle[id] = append(c.byHandle[id], key)
	}
}

// evict removes every bind group referencing the handle and returns them for release.
func (c *bindGroupCache) evict(id uint64) []*wgpu.BindGroup {
	keys := c.byHandle[id]
	delete(c.byHandle, id)
	var out []*wgpu.BindGroup
	for _, k := range keys {
		if bg, ok := c.groups[k]; ok {
			out = append(out, bg)
			delete(c.groups, k)
		}
	}
	return out
}

// evictLayout removes every bind group built for a layout.
func (c *bindGroupCache) evictLayout(layout *wgpu.BindGroupLayout) []*wgpu.BindGroup {
	var out []*wgpu.BindGroup
	for k, bg := range c.groups {
		if k.layout == layout {
			out = append(out, bg)
			delete(c.groups, k)
		}
	}
	return out
}

func (c *bindGroupCache) drain() []*wgpu.BindGroup {
	out := make([]*wgpu.BindGroup, 0, len(c.groups))
	for k, bg := range c.groups {
		out = append(out, bg)
		delete(c.groups, k)
	}
	clear(c.byHandle)
	return out
}

func (c *bindGroupCache) size() int {
	return len(c.groups)
}
