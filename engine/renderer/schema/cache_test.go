package schema

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReflector() *fakeReflector {
	return &fakeReflector{refls: map[string]*reflection.StageReflection{
		"vs": {ConstantBuffers: []reflection.ConstantBuffer{constBuf("globals", 0, 64, constVar("g_World", 0, 64))}},
		"fs": {Resources: []reflection.Resource{tex("tTexture", 0)}, Samplers: []reflection.Sampler{smp("sSampler", 0)}},
	}}
}

func TestCacheReturnsSameSchemaForSameBlobs(t *testing.T) {
	r := newTestReflector()
	c := NewCache(WithReflector(r), WithReflectionWorkers(2))
	t.Cleanup(c.Close)

	first, err := c.Get("quad",
		StageSource{Stage: reflection.StageVertex, Blob: []byte("vs")},
		StageSource{Stage: reflection.StageFragment, Blob: []byte("fs")})
	require.NoError(t, err)
	assert.Equal(t, 2, r.callCount())
	assert.Equal(t, []string{"g_World"}, first.ConstantNames())
	assert.Equal(t, []string{"tTexture"}, first.SRVNames())

	second, err := c.Get("quad again",
		StageSource{Stage: reflection.StageFragment, Blob: []byte("fs")},
		StageSource{Stage: reflection.StageVertex, Blob: []byte("vs")})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 2, r.callCount(), "hits do not reflect")
	assert.Equal(t, CacheStats{Entries: 1, Hits: 1, Misses: 1}, c.Stats())

	other, err := c.Get("vs only", StageSource{Stage: reflection.StageVertex, Blob: []byte("vs")})
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, c.Stats().Entries)

	c.Clear()
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestCacheKeyIncludesStageAndPolicy(t *testing.T) {
	r := newTestReflector()
	repeat := NewCache(WithReflector(r))
	unbound := NewCache(WithReflector(r), WithCacheSlotGapPolicy(SlotGapUnbound))
	t.Cleanup(repeat.Close)
	t.Cleanup(unbound.Close)

	src := StageSource{Stage: reflection.StageFragment, Blob: []byte("fs")}
	a, err := repeat.Get("a", src)
	require.NoError(t, err)
	b, err := unbound.Get("b", src)
	require.NoError(t, err)
	assert.Equal(t, SlotGapRepeatPrevious, a.SlotGapPolicy())
	assert.Equal(t, SlotGapUnbound, b.SlotGapPolicy())

	c, err := repeat.Get("c", StageSource{Stage: reflection.StageCompute, Blob: []byte("fs")})
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, []reflection.Stage{reflection.StageCompute}, c.Stages())
}

func TestCacheDoesNotKeepFailures(t *testing.T) {
	r := newTestReflector()
	r.err = errors.New("bad shader")
	c := NewCache(WithReflector(r))
	t.Cleanup(c.Close)

	src := StageSource{Stage: reflection.StageVertex, Blob: []byte("vs")}
	_, err := c.Get("broken", src)
	require.Error(t, err)
	assert.ErrorContains(t, err, "bad shader")

	r.mu.Lock()
	r.err = nil
	r.mu.Unlock()

	s, err := c.Get("fixed", src)
	require.NoError(t, err)
	assert.Equal(t, "fixed", s.Label())
	assert.Equal(t, CacheStats{Entries: 1, Misses: 2}, c.Stats())
}

func TestCacheRejectsDuplicateStages(t *testing.T) {
	c := NewCache(WithReflector(newTestReflector()))
	t.Cleanup(c.Close)
	_, err := c.Get("dup",
		StageSource{Stage: reflection.StageVertex, Blob: []byte("vs")},
		StageSource{Stage: reflection.StageVertex, Blob: []byte("fs")})
	assert.ErrorIs(t, err, ErrDuplicateStage)
}

func TestCacheClose(t *testing.T) {
	r := newTestReflector()
	c := NewCache(WithReflector(r))

	src := StageSource{Stage: reflection.StageVertex, Blob: []byte("vs")}
	_, err := c.Get("before", src)
	require.NoError(t, err)

	c.Close()
	c.Close()
	assert.Equal(t, 0, c.Stats().Entries)

	_, err = c.Get("after", src)
	assert.ErrorIs(t, err, ErrCacheClosed)
	assert.Equal(t, 1, r.callCount(), "a closed cache does not reflect")
}
