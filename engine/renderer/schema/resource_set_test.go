package schema

import (
	"bytes"
	"testing"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pattern(n int, seed byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = seed + byte(i)
	}
	return out
}

func TestNewResourceSetCreatesOneBufferPerUniqueBuffer(t *testing.T) {
	s := matrixPipeline(t)
	dev := newFakeDevice()

	set, err := s.NewResourceSet(dev)
	require.NoError(t, err)

	require.Len(t, dev.created, 1)
	assert.Equal(t, 128, len(dev.created[0].mem))
	assert.Equal(t, "matrices vsGlobals", dev.created[0].label)
	assert.Len(t, set.ConstantBuffers(), 1)
	assert.Equal(t, make([]byte, 128), set.Staging())
	assert.Same(t, s, set.Schema())
}

func TestNewResourceSetNilDevice(t *testing.T) {
	_, err := matrixPipeline(t).NewResourceSet(nil)
	assert.ErrorIs(t, err, ErrNilDevice)
}

func TestNewResourceSetReleasesPartialBuffers(t *testing.T) {
	vs := &reflection.StageReflection{
		Stage:           reflection.StageVertex,
		ConstantBuffers: []reflection.ConstantBuffer{constBuf("a", 0, 16, constVar("x", 0, 16))},
	}
	fs := &reflection.StageReflection{
		Stage:           reflection.StageFragment,
		ConstantBuffers: []reflection.ConstantBuffer{constBuf("b", 0, 16, constVar("y", 0, 16))},
	}
	s, err := NewSchema(WithStage(vs), WithStage(fs))
	require.NoError(t, err)

	dev := newFakeDevice()
	dev.failAt = 1
	set, err := s.NewResourceSet(dev)
	assert.Nil(t, set)
	assert.ErrorIs(t, err, ErrResourceCreation)
	require.Len(t, dev.created, 1)
	assert.Equal(t, 1, dev.created[0].released)
}

func TestBindConstantRoundTripsThroughFusedBuffer(t *testing.T) {
	s := matrixPipeline(t)
	dev := newFakeDevice()
	ctx := newFakeContext()
	set, err := s.NewResourceSet(dev)
	require.NoError(t, err)

	world := pattern(64, 7)
	set.BeginUpdate(ctx)
	set.BindConstant(s.LookupConstant("g_World"), world)
	require.NoError(t, set.EndUpdate(ctx))

	buf := dev.created[0].mem
	assert.Equal(t, world, buf[64:128])
	assert.Equal(t, make([]byte, 64), buf[:64])
	assert.Equal(t, 1, ctx.mapCalls)
	assert.Equal(t, []*fakeBuffer{dev.created[0]}, ctx.unmapped)
}

func TestBindConstantByNameAndTruncation(t *testing.T) {
	s := matrixPipeline(t)
	set, err := s.NewResourceSet(newFakeDevice())
	require.NoError(t, err)

	viewProj := s.StagingLayout()[s.LookupConstant("g_ViewProj")]
	world := s.StagingLayout()[s.LookupConstant("g_World")]

	set.BindConstantByName("g_ViewProj", pattern(200, 1))
	staging := set.Staging()
	assert.Equal(t, pattern(64, 1), staging[viewProj.StageOffset:viewProj.StageOffset+64])
	assert.Equal(t, make([]byte, 64), staging[world.StageOffset:world.StageOffset+64], "neighbouring constant untouched")

	set.BindConstantByName("g_World", []byte{9, 9})
	assert.Equal(t, []byte{9, 9, 0}, staging[world.StageOffset:world.StageOffset+3], "short data leaves the rest")
}

func TestOutOfRangeBindsAreNoOps(t *testing.T) {
	s := matrixPipeline(t)
	set, err := s.NewResourceSet(newFakeDevice())
	require.NoError(t, err)
	before := bytes.Clone(set.Staging())

	for _, idx := range []int{-1, s.ConstantCount(), s.ConstantCount() + 10} {
		set.BindConstant(idx, pattern(64, 3))
	}
	set.BindConstantByName("g_Missing", pattern(64, 3))
	assert.Equal(t, before, set.Staging())

	ctx := newFakeContext()
	set.BindSRV(-5, &fakeView{name: "stray"})
	set.BindSampler(99, &fakeSampler{name: "stray"})
	set.BindSRVByName("missing", &fakeView{name: "stray"})
	set.Apply(ctx)

	for _, call := range ctx.calls {
		for _, view := range call.views {
			assert.Nil(t, view)
		}
		for _, sm := range call.samplers {
			assert.Nil(t, sm)
		}
	}
}

func TestApplyIssuesThreeCallsPerStage(t *testing.T) {
	s := matrixPipeline(t)
	set, err := s.NewResourceSet(newFakeDevice())
	require.NoError(t, err)

	view := &fakeView{name: "checker"}
	sampler := &fakeSampler{name: "linear"}
	set.BindSRVByName("tTexture", view)
	set.BindSamplerByName("sSampler", sampler)

	ctx := newFakeContext()
	set.Apply(ctx)
	require.Len(t, ctx.calls, 6)

	for _, stage := range s.Stages() {
		counts := s.StageCounts(stage)
		for _, category := range []Category{CategorySampler, CategoryShaderResource, CategoryConstantBuffer} {
			calls := ctx.callsFor(stage, category)
			require.Len(t, calls, 1, "%s %s", stage, category)
			assert.Equal(t, uint32(0), calls[0].start)
		}
		assert.Len(t, ctx.callsFor(stage, CategorySampler)[0].samplers, int(counts.Samplers))
		assert.Len(t, ctx.callsFor(stage, CategoryShaderResource)[0].views, int(counts.ShaderResources))
		assert.Len(t, ctx.callsFor(stage, CategoryConstantBuffer)[0].buffers, int(counts.ConstantBuffers))
	}

	fsViews := ctx.callsFor(reflection.StageFragment, CategoryShaderResource)[0].views
	assert.Equal(t, []ShaderResource{view}, fsViews)
	fsSamplers := ctx.callsFor(reflection.StageFragment, CategorySampler)[0].samplers
	assert.Equal(t, []Sampler{sampler}, fsSamplers)

	vsBuffers := ctx.callsFor(reflection.StageVertex, CategoryConstantBuffer)[0].buffers
	fsBuffers := ctx.callsFor(reflection.StageFragment, CategoryConstantBuffer)[0].buffers
	require.Len(t, vsBuffers, 1)
	assert.Same(t, vsBuffers[0], fsBuffers[0], "fused buffer is bound to both stages")
}

func TestApplySplitsTexturesAcrossStages(t *testing.T) {
	vs := &reflection.StageReflection{
		Stage:     reflection.StageVertex,
		Resources: []reflection.Resource{tex("tHeight", 0), tex("tNoise", 1)},
	}
	fs := &reflection.StageReflection{
		Stage:     reflection.StageFragment,
		Resources: []reflection.Resource{tex("tAlbedo", 0), tex("tNormal", 1), tex("tRoughness", 2), tex("tOcclusion", 3)},
	}
	s, err := NewSchema(WithLabel("terrain"), WithStage(vs), WithStage(fs))
	require.NoError(t, err)
	require.Len(t, s.SRVNames(), 6)

	set, err := s.NewResourceSet(newFakeDevice())
	require.NoError(t, err)
	views := make(map[string]*fakeView)
	for _, name := range s.SRVNames() {
		views[name] = &fakeView{name: name}
		set.BindSRVByName(name, views[name])
	}

	ctx := newFakeContext()
	set.Apply(ctx)

	vsCalls := ctx.callsFor(reflection.StageVertex, CategoryShaderResource)
	require.Len(t, vsCalls, 1)
	assert.Equal(t, uint32(2), s.StageCounts(reflection.StageVertex).ShaderResources)
	assert.Equal(t, []ShaderResource{views["tHeight"], views["tNoise"]}, vsCalls[0].views)

	fsCalls := ctx.callsFor(reflection.StageFragment, CategoryShaderResource)
	require.Len(t, fsCalls, 1)
	assert.Equal(t, uint32(4), s.StageCounts(reflection.StageFragment).ShaderResources)
	assert.Equal(t, []ShaderResource{
		views["tAlbedo"], views["tNormal"], views["tRoughness"], views["tOcclusion"],
	}, fsCalls[0].views)
}

func TestApplyFillsHolesPerPolicy(t *testing.T) {
	fs := &reflection.StageReflection{
		Stage:     reflection.StageFragment,
		Resources: []reflection.Resource{tex("tA", 0), tex("tB", 2)},
	}
	a, b := &fakeView{name: "a"}, &fakeView{name: "b"}

	for _, tt := range []struct {
		policy SlotGapPolicy
		want   []ShaderResource
	}{
		{policy: SlotGapRepeatPrevious, want: []ShaderResource{a, a, b}},
		{policy: SlotGapUnbound, want: []ShaderResource{a, nil, b}},
	} {
		t.Run(tt.policy.String(), func(t *testing.T) {
			s, err := NewSchema(WithStage(fs), WithSlotGapPolicy(tt.policy))
			require.NoError(t, err)
			set, err := s.NewResourceSet(newFakeDevice())
			require.NoError(t, err)

			set.BindSRVByName("tA", a)
			set.BindSRVByName("tB", b)
			ctx := newFakeContext()
			set.Apply(ctx)

			calls := ctx.callsFor(reflection.StageFragment, CategoryShaderResource)
			require.Len(t, calls, 1)
			assert.Equal(t, tt.want, calls[0].views)
		})
	}
}

func TestEndUpdateUnmapsOnMapFailure(t *testing.T) {
	vs := &reflection.StageReflection{
		Stage:           reflection.StageVertex,
		ConstantBuffers: []reflection.ConstantBuffer{constBuf("a", 0, 16, constVar("x", 0, 16))},
	}
	fs := &reflection.StageReflection{
		Stage:           reflection.StageFragment,
		ConstantBuffers: []reflection.ConstantBuffer{constBuf("b", 0, 16, constVar("y", 0, 16))},
	}
	s, err := NewSchema(WithStage(vs), WithStage(fs))
	require.NoError(t, err)
	dev := newFakeDevice()
	set, err := s.NewResourceSet(dev)
	require.NoError(t, err)

	ctx := newFakeContext()
	ctx.failMapAt = 1
	err = set.EndUpdate(ctx)
	assert.ErrorIs(t, err, errMapFailed)
	assert.Equal(t, []*fakeBuffer{dev.created[0]}, ctx.unmapped)

	ok := newFakeContext()
	require.NoError(t, set.EndUpdate(ok))
	assert.Len(t, ok.unmapped, 2)
}

func TestEndUpdateWithoutConstants(t *testing.T) {
	fs := &reflection.StageReflection{
		Stage:    reflection.StageFragment,
		Samplers: []reflection.Sampler{smp("sSampler", 0)},
	}
	s, err := NewSchema(WithStage(fs))
	require.NoError(t, err)
	set, err := s.NewResourceSet(newFakeDevice())
	require.NoError(t, err)

	ctx := newFakeContext()
	require.NoError(t, set.EndUpdate(ctx))
	assert.Zero(t, ctx.mapCalls)
	assert.Empty(t, set.Staging())
}

func TestDestroyResourceSet(t *testing.T) {
	s := matrixPipeline(t)
	other := matrixPipeline(t)
	dev := newFakeDevice()
	set, err := s.NewResourceSet(dev)
	require.NoError(t, err)

	assert.ErrorIs(t, other.DestroyResourceSet(set), ErrForeignResourceSet)
	assert.Equal(t, 0, dev.created[0].released)

	require.NoError(t, set.Release())
	assert.Equal(t, 1, dev.created[0].released)
	assert.ErrorIs(t, s.DestroyResourceSet(set), ErrResourceSetReleased)
	assert.Equal(t, 1, dev.created[0].released)
	assert.ErrorIs(t, set.EndUpdate(newFakeContext()), ErrResourceSetReleased)
}
