package renderer

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/schema"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBuffer struct{ id uint64 }

func (b *testBuffer) handleID() uint64 { return b.id }
func (b *testBuffer) Size() uint32     { return 16 }
func (b *testBuffer) Release()         {}

type testView struct {
	id   uint64
	kind reflection.ResourceKind
}

func (v *testView) handleID() uint64                  { return v.id }
func (v *testView) ViewKind() reflection.ResourceKind { return v.kind }
func (v *testView) Release()                          {}

type testSampler struct {
	id         uint64
	comparison bool
}

func (s *testSampler) handleID() uint64 { return s.id }
func (s *testSampler) Comparison() bool { return s.comparison }
func (s *testSampler) Release()         {}

// strangerView satisfies schema.ShaderResource but was not made by the renderer.
type strangerView struct{}

func (strangerView) ViewKind() reflection.ResourceKind { return reflection.ResourceSampledTexture }
func (strangerView) Release()                          {}

func uniformEntry(binding uint32, vis wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: vis,
		Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: 16},
	}
}

func textureEntry(binding uint32) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageFragment,
		Texture: wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeFloat,
			ViewDimension: wgpu.TextureViewDimension2D,
		},
	}
}

func samplerEntry(binding uint32, typ wgpu.SamplerBindingType) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageFragment,
		Sampler:    wgpu.SamplerBindingLayout{Type: typ},
	}
}

func storageEntry(binding uint32, typ wgpu.BufferBindingType) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		Buffer:     wgpu.BufferBindingLayout{Type: typ},
	}
}

func TestSetSlotsGrowsAndOverwrites(t *testing.T) {
	got := setSlots([]int{1}, 3, []int{7, 8})
	assert.Equal(t, []int{1, 0, 0, 7, 8}, got)

	got = setSlots(got, 0, []int{9})
	assert.Equal(t, []int{9, 0, 0, 7, 8}, got)
}

func TestSetIgnoresInvalidStage(t *testing.T) {
	var tables bindTables
	tables.setBuffers(reflection.StageCount, 0, []schema.ConstantBuffer{&testBuffer{id: 1}})
	tables.setBuffers(reflection.Stage(-1), 0, []schema.ConstantBuffer{&testBuffer{id: 1}})
	for _, st := range tables.stages {
		assert.Empty(t, st.buffers)
	}
}

func TestResolveSharedUniform(t *testing.T) {
	shared := &testBuffer{id: 1}
	entry := uniformEntry(0, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)

	var tables bindTables
	tables.setBuffers(reflection.StageVertex, 0, []schema.ConstantBuffer{shared})
	tables.setBuffers(reflection.StageFragment, 0, []schema.ConstantBuffer{shared})

	h, err := tables.resolve(0, entry)
	require.NoError(t, err)
	assert.Same(t, shared, h)

	// One stage bound is enough.
	tables.setBuffers(reflection.StageFragment, 0, []schema.ConstantBuffer{nil})
	h, err = tables.resolve(0, entry)
	require.NoError(t, err)
	assert.Same(t, shared, h)

	tables.setBuffers(reflection.StageFragment, 0, []schema.ConstantBuffer{&testBuffer{id: 2}})
	_, err = tables.resolve(0, entry)
	assert.ErrorIs(t, err, ErrBindingConflict)
}

func TestResolveUsesFlattenedSlot(t *testing.T) {
	tex := &testView{id: 5, kind: reflection.ResourceSampledTexture}
	samp := &testSampler{id: 6}

	var tables bindTables
	tables.setViews(reflection.StageFragment, reflection.SlotOf(1, 0), []schema.ShaderResource{tex})
	tables.setSamplers(reflection.StageFragment, reflection.SlotOf(1, 1), []schema.Sampler{samp})

	h, err := tables.resolve(1, textureEntry(0))
	require.NoError(t, err)
	assert.Same(t, tex, h)

	h, err = tables.resolve(1, samplerEntry(1, wgpu.SamplerBindingTypeFiltering))
	require.NoError(t, err)
	assert.Same(t, samp, h)

	// Group 0 addresses different slots.
	_, err = tables.resolve(0, textureEntry(0))
	assert.ErrorIs(t, err, ErrUnboundResource)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name    string
		bind    func(*bindTables)
		entry   wgpu.BindGroupLayoutEntry
		wantErr error
	}{
		{
			name:    "nothing bound",
			bind:    func(*bindTables) {},
			entry:   uniformEntry(0, wgpu.ShaderStageVertex),
			wantErr: ErrUnboundResource,
		},
		{
			name: "foreign view",
			bind: func(tb *bindTables) {
				tb.setViews(reflection.StageFragment, 0, []schema.ShaderResource{strangerView{}})
			},
			entry:   textureEntry(0),
			wantErr: ErrForeignHandle,
		},
		{
			name: "buffer view for texture binding",
			bind: func(tb *bindTables) {
				tb.setViews(reflection.StageFragment, 0, []schema.ShaderResource{&testView{id: 1, kind: reflection.ResourceStorageBuffer}})
			},
			entry:   textureEntry(0),
			wantErr: ErrHandleKind,
		},
		{
			name: "read-only buffer for read_write binding",
			bind: func(tb *bindTables) {
				tb.setViews(reflection.StageCompute, 0, []schema.ShaderResource{&testView{id: 1, kind: reflection.ResourceReadOnlyStorageBuffer}})
			},
			entry:   storageEntry(0, wgpu.BufferBindingTypeStorage),
			wantErr: ErrHandleKind,
		},
		{
			name: "comparison sampler for filtering binding",
			bind: func(tb *bindTables) {
				tb.setSamplers(reflection.StageFragment, 0, []schema.Sampler{&testSampler{id: 1, comparison: true}})
			},
			entry:   samplerEntry(0, wgpu.SamplerBindingTypeFiltering),
			wantErr: ErrHandleKind,
		},
		{
			name:    "empty entry",
			bind:    func(*bindTables) {},
			entry:   wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: wgpu.ShaderStageFragment},
			wantErr: ErrUnsupportedBinding,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tables bindTables
			tt.bind(&tables)
			_, err := tables.resolve(0, tt.entry)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolveStorageBuffers(t *testing.T) {
	rw := &testView{id: 1, kind: reflection.ResourceStorageBuffer}
	ro := &testView{id: 2, kind: reflection.ResourceReadOnlyStorageBuffer}

	var tables bindTables
	tables.setViews(reflection.StageCompute, 0, []schema.ShaderResource{rw, ro})

	h, err := tables.resolve(0, storageEntry(0, wgpu.BufferBindingTypeStorage))
	require.NoError(t, err)
	assert.Same(t, rw, h)

	h, err = tables.resolve(0, storageEntry(1, wgpu.BufferBindingTypeReadOnlyStorage))
	require.NoError(t, err)
	assert.Same(t, ro, h)
}

func TestEntryCategory(t *testing.T) {
	storageTexture := wgpu.BindGroupLayoutEntry{
		StorageTexture: wgpu.StorageTextureBindingLayout{
			Access:        wgpu.StorageTextureAccessWriteOnly,
			Format:        wgpu.TextureFormatRGBA8Unorm,
			ViewDimension: wgpu.TextureViewDimension2D,
		},
	}
	tests := []struct {
		name  string
		entry wgpu.BindGroupLayoutEntry
		want  schema.Category
	}{
		{"uniform", uniformEntry(0, wgpu.ShaderStageVertex), schema.CategoryConstantBuffer},
		{"storage", storageEntry(0, wgpu.BufferBindingTypeStorage), schema.CategoryShaderResource},
		{"read-only storage", storageEntry(0, wgpu.BufferBindingTypeReadOnlyStorage), schema.CategoryShaderResource},
		{"texture", textureEntry(0), schema.CategoryShaderResource},
		{"storage texture", storageTexture, schema.CategoryShaderResource},
		{"sampler", samplerEntry(0, wgpu.SamplerBindingTypeComparison), schema.CategorySampler},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := entryCategory(tt.entry)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForgetUnbindsEveryStage(t *testing.T) {
	buf := &testBuffer{id: 9}
	other := &testBuffer{id: 10}

	var tables bindTables
	tables.setBuffers(reflection.StageVertex, 0, []schema.ConstantBuffer{buf, other})
	tables.setBuffers(reflection.StageFragment, 2, []schema.ConstantBuffer{buf})

	tables.forget(buf.id)
	assert.Nil(t, tables.stages[reflection.StageVertex].buffers[0])
	assert.Same(t, other, tables.stages[reflection.StageVertex].buffers[1])
	assert.Nil(t, tables.stages[reflection.StageFragment].buffers[2])

	_, err := tables.resolve(0, uniformEntry(0, wgpu.ShaderStageVertex))
	assert.ErrorIs(t, err, ErrUnboundResource)
}

func TestGroupKeyIdentity(t *testing.T) {
	layout := &wgpu.BindGroupLayout{}
	a := &testBuffer{id: 1}
	b := &testSampler{id: 2}

	k1 := makeGroupKey(layout, []any{a, b})
	k2 := makeGroupKey(layout, []any{a, b})
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, makeGroupKey(layout, []any{b, a}), "entry order is part of the key")
	assert.NotEqual(t, k1, makeGroupKey(&wgpu.BindGroupLayout{}, []any{a, b}), "layouts are compared by identity")
	assert.Equal(t, makeGroupKey(layout, nil), makeGroupKey(layout, []any{}))
}

func TestConstantFlushesGetDistinctBindings(t *testing.T) {
	first := &wgpu.Buffer{}
	cb := &wgpuConstantBuffer{id: 9, label: "per-draw", size: 64, buffer: first, versions: []*wgpu.Buffer{first}}
	created := 0
	create := func() (*wgpu.Buffer, error) {
		created++
		return &wgpu.Buffer{}, nil
	}

	layout := &wgpu.BindGroupLayout{}
	entry := uniformEntry(0, wgpu.ShaderStageVertex)
	var tables bindTables
	tables.setBuffers(reflection.StageVertex, 0, []schema.ConstantBuffer{cb})

	// Two flush-then-draw rounds in one frame.
	draw := func() (groupKey, wgpu.BindGroupEntry) {
		h, err := tables.resolve(0, entry)
		require.NoError(t, err)
		bge, err := bindGroupEntry(0, h)
		require.NoError(t, err)
		return makeGroupKey(layout, []any{h}), bge
	}

	target, err := cb.advance(create)
	require.NoError(t, err)
	assert.Same(t, first, target, "the first flush of a frame reuses the initial buffer")
	key1, entry1 := draw()

	target, err = cb.advance(create)
	require.NoError(t, err)
	assert.NotSame(t, first, target)
	key2, entry2 := draw()

	assert.NotEqual(t, key1, key2)
	assert.Same(t, first, entry1.Buffer)
	assert.Same(t, target, entry2.Buffer)
	assert.Equal(t, 1, created)

	// The next frame rewinds onto the existing versions.
	cb.endFrame()
	key3, _ := draw()
	assert.Equal(t, key2, key3, "the last flush stays bound until the next one")
	_, err = cb.advance(create)
	require.NoError(t, err)
	key4, entry4 := draw()
	assert.Equal(t, key1, key4)
	assert.Same(t, first, entry4.Buffer)
	assert.Equal(t, 1, created)
}

func TestConstantFlushCreateFailureKeepsVersion(t *testing.T) {
	first := &wgpu.Buffer{}
	cb := &wgpuConstantBuffer{id: 3, size: 16, buffer: first, versions: []*wgpu.Buffer{first}}
	_, err := cb.advance(nil)
	require.NoError(t, err)

	failed := errors.New("out of memory")
	_, err = cb.advance(func() (*wgpu.Buffer, error) { return nil, failed })
	assert.ErrorIs(t, err, failed)
	assert.Same(t, first, cb.buffer)
	assert.Equal(t, uint32(0), cb.version())
	assert.Len(t, cb.versions, 1)
}

func TestBindGroupCacheEviction(t *testing.T) {
	layoutA := &wgpu.BindGroupLayout{}
	layoutB := &wgpu.BindGroupLayout{}
	buf := &testBuffer{id: 1}
	tex := &testView{id: 2}
	samp := &testSampler{id: 3}

	c := newBindGroupCache()
	g1, g2, g3 := &wgpu.BindGroup{}, &wgpu.BindGroup{}, &wgpu.BindGroup{}

	k1 := makeGroupKey(layoutA, []any{buf})
	k2 := makeGroupKey(layoutB, []any{tex, samp})
	k3 := makeGroupKey(layoutB, []any{tex, buf})
	c.put(k1, g1, []any{buf})
	c.put(k2, g2, []any{tex, samp})
	c.put(k3, g3, []any{tex, buf})
	assert.Equal(t, 3, c.size())

	got, ok := c.get(k2)
	require.True(t, ok)
	assert.Same(t, g2, got)

	evicted := c.evict(buf.id)
	assert.ElementsMatch(t, []*wgpu.BindGroup{g1, g3}, evicted)
	assert.Equal(t, 1, c.size())
	_, ok = c.get(k1)
	assert.False(t, ok)

	// The stale key list of tex must not resurrect anything.
	assert.Equal(t, []*wgpu.BindGroup{g2}, c.evict(tex.id))
	assert.Empty(t, c.evict(tex.id))
	assert.Equal(t, 0, c.size())

	c.put(k1, g1, []any{buf})
	c.put(k2, g2, []any{tex, samp})
	assert.Equal(t, []*wgpu.BindGroup{g2}, c.evictLayout(layoutB))
	assert.Equal(t, []*wgpu.BindGroup{g1}, c.drain())
	assert.Equal(t, 0, c.size())
	assert.Empty(t, c.evict(buf.id))
}

func TestStatsDeltaAndLogValue(t *testing.T) {
	prev := Stats{DrawCalls: 10, SetCalls: 40, BindGroupsCreated: 3, BindGroupsLive: 3}
	cur := Stats{DrawCalls: 14, SetCalls: 52, BindGroupsCreated: 4, BindGroupCacheHits: 7, BindGroupsLive: 2}

	d := cur.Sub(prev)
	assert.Equal(t, uint64(4), d.DrawCalls)
	assert.Equal(t, uint64(12), d.SetCalls)
	assert.Equal(t, uint64(1), d.BindGroupsCreated)
	assert.Equal(t, uint64(7), d.BindGroupCacheHits)
	assert.Equal(t, 2, d.BindGroupsLive)

	v := d.LogValue()
	require.Equal(t, slog.KindGroup, v.Kind())
	attrs := map[string]slog.Value{}
	for _, a := range v.Group() {
		attrs[a.Key] = a.Value
	}
	assert.Equal(t, uint64(4), attrs["draws"].Uint64())
	assert.Equal(t, uint64(7), attrs["bindGroupHits"].Uint64())
	assert.Equal(t, int64(2), attrs["bindGroupsLive"].Int64())
}
