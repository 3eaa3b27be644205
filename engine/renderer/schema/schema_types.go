package schema

import "github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"

// UniqueConstant is the staging-block entry of one uniquely named constant.
type UniqueConstant struct {
	StageOffset uint32
	StageSize   uint32
}

// CBMovement copies Size bytes from the staging block at StageOffset into unique constant buffer
// BufferIndex at BufferOffset.
type CBMovement struct {
	StageOffset  uint32
	Size         uint32
	BufferIndex  uint32
	BufferOffset uint32
}

// Category is one of the three per-stage slot spaces.
type Category int

const (
	CategorySampler Category = iota
	CategoryShaderResource
	CategoryConstantBuffer

	categoryCount
)

func (c Category) String() string {
	switch c {
	case CategorySampler:
		return "sampler"
	case CategoryShaderResource:
		return "shader resource"
	case CategoryConstantBuffer:
		return "constant buffer"
	default:
		return "unknown"
	}
}

// SlotGapPolicy decides what a slot hole inside a stage's bind-index table refers to.
type SlotGapPolicy int

const (
	// SlotGapRepeatPrevious fills a hole with the previous slot's name, so the resource bound at the
	// lower slot is also bound to the hole. Leading holes have no previous name and stay unbound.
	SlotGapRepeatPrevious SlotGapPolicy = iota

	// SlotGapUnbound fills every hole with the not-found sentinel, binding nothing there.
	SlotGapUnbound
)

func (p SlotGapPolicy) String() string {
	switch p {
	case SlotGapRepeatPrevious:
		return "repeat"
	case SlotGapUnbound:
		return "unbound"
	default:
		return "unknown"
	}
}

// StageCounts holds a stage's slot span per category: the number of entries handed to each set call.
type StageCounts struct {
	Samplers        uint32
	ShaderResources uint32
	ConstantBuffers uint32
}

// variableRef is one constant as one stage's reflection declares it.
type variableRef struct {
	stage  reflection.Stage
	cb     int
	offset uint32
	size   uint32
	hash   uint32
	name   string
	unique int
}

// bindingRef is one texture, buffer view or sampler as one stage declares it.
type bindingRef struct {
	stage reflection.Stage
	slot  uint32
	hash  uint32
	name  string
}

// cbDesc is one declared constant buffer before fusion.
type cbDesc struct {
	stage    reflection.Stage
	slot     uint32
	size     uint32
	name     string
	firstVar int
	varCount int
	merge    int
}

// namedHash is a (hash, name) pair used while resolving unique names.
type namedHash struct {
	hash uint32
	name string
	size uint32
}

// stageTable locates one stage's run inside a flat bind-index array.
type stageTable struct {
	start uint32
	count uint32
}
