package renderer

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/schema"
	"github.com/cogentcore/webgpu/wgpu"
)

// nextHandleID numbers every GPU handle the backend hands out; bind groups are cached by these ids.
var nextHandleID atomic.Uint64

// handle is implemented by every object this package creates. Handles from elsewhere cannot be
// turned into bind group entries.
type handle interface {
	handleID() uint64
}

// releaseHook is called with a handle's id before the GPU object is freed.
type releaseHook func(id uint64)

// versioned is implemented by handles whose GPU storage changes between flushes. Bind groups
// are keyed per version.
type versioned interface {
	version() uint32
}

// wgpuConstantBuffer keeps one GPU buffer per flush made in the current frame. Queue writes run
// before the frame is submitted, so a flush never overwrites storage an earlier draw of the same
// frame binds. buffer is the version draws bind; nil once released.
type wgpuConstantBuffer struct {
	id        uint64
	label     string
	size      uint32
	buffer    *wgpu.Buffer
	versions  []*wgpu.Buffer
	current   int
	flushes   int
	shadow    []byte
	onRelease releaseHook
}

var (
	_ schema.ConstantBuffer = &wgpuConstantBuffer{}
	_ versioned             = &wgpuConstantBuffer{}
)

func (b *wgpuConstantBuffer) handleID() uint64 { return b.id }

func (b *wgpuConstantBuffer) version() uint32 { return uint32(b.current) }

// advance selects the version the next flush writes and makes it current. A new version is made
// with create once every existing one already holds a flush of this frame.
//
// Parameters:
//   - create: allocates a GPU buffer of the handle's size
//
// Returns:
//   - *wgpu.Buffer: the buffer to upload the shadow into
//   - error: the create error; the current version is unchanged
func (b *wgpuConstantBuffer) advance(create func() (*wgpu.Buffer, error)) (*wgpu.Buffer, error) {
	if b.flushes == len(b.versions) {
		buf, err := create()
		if err != nil {
			return nil, err
		}
		b.versions = append(b.versions, buf)
	}
	b.current = b.flushes
	b.flushes++
	b.buffer = b.versions[b.current]
	return b.buffer, nil
}

// endFrame lets the next frame's flushes reuse the versions from the start. The current version
// stays bound until then.
func (b *wgpuConstantBuffer) endFrame() {
	b.flushes = 0
}

func (b *wgpuConstantBuffer) Size() uint32 {
	return b.size
}

func (b *wgpuConstantBuffer) Release() {
	if b.buffer == nil {
		return
	}
	if b.onRelease != nil {
		b.onRelease(b.id)
	}
	for _, v := range b.versions {
		v.Release()
	}
	b.versions = nil
	b.buffer = nil
	b.shadow = nil
}

type wgpuTexture struct {
	id        uint64
	label     string
	kind      reflection.ResourceKind
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	onRelease releaseHook
}

var _ schema.ShaderResource = &wgpuTexture{}

func (t *wgpuTexture) handleID() uint64 { return t.id }

func (t *wgpuTexture) ViewKind() reflection.ResourceKind {
	return t.kind
}

func (t *wgpuTexture) Release() {
	if t.view == nil {
		return
	}
	if t.onRelease != nil {
		t.onRelease(t.id)
	}
	t.view.Release()
	t.view = nil
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

type wgpuStorageBuffer struct {
	id        uint64
	label     string
	readOnly  bool
	size      uint64
	buffer    *wgpu.Buffer
	onRelease releaseHook
}

var _ schema.ShaderResource = &wgpuStorageBuffer{}

func (b *wgpuStorageBuffer) handleID() uint64 { return b.id }

func (b *wgpuStorageBuffer) ViewKind() reflection.ResourceKind {
	if b.readOnly {
		return reflection.ResourceReadOnlyStorageBuffer
	}
	return reflection.ResourceStorageBuffer
}

func (b *wgpuStorageBuffer) Release() {
	if b.buffer == nil {
		return
	}
	if b.onRelease != nil {
		b.onRelease(b.id)
	}
	b.buffer.Release()
	b.buffer = nil
}

type wgpuSampler struct {
	id         uint64
	label      string
	comparison bool
	sampler    *wgpu.Sampler
	onRelease  releaseHook
}

var _ schema.Sampler = &wgpuSampler{}

func (s *wgpuSampler) handleID() uint64 { return s.id }

func (s *wgpuSampler) Comparison() bool {
	return s.comparison
}

func (s *wgpuSampler) Release() {
	if s.sampler == nil {
		return
	}
	if s.onRelease != nil {
		s.onRelease(s.id)
	}
	s.sampler.Release()
	s.sampler = nil
}

// Mesh is a vertex buffer with an optional index buffer, drawn with Renderer.Draw.
type Mesh interface {
	// Label returns the mesh's debug label.
	Label() string

	// IndexCount returns the number of indices, or of vertices for a non-indexed mesh.
	IndexCount() int

	// Indexed reports whether the mesh has an index buffer.
	Indexed() bool

	// Release frees the mesh's GPU buffers.
	Release()
}

type wgpuMesh struct {
	label        string
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   int
}

var _ Mesh = &wgpuMesh{}

func (m *wgpuMesh) Label() string {
	return m.label
}

func (m *wgpuMesh) IndexCount() int {
	return m.indexCount
}

func (m *wgpuMesh) Indexed() bool {
	return m.indexBuffer != nil
}

func (m *wgpuMesh) Release() {
	if m.vertexBuffer != nil {
		m.vertexBuffer.Release()
		m.vertexBuffer = nil
	}
	if m.indexBuffer != nil {
		m.indexBuffer.Release()
		m.indexBuffer = nil
	}
}
