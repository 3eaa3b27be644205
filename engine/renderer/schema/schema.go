package schema

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
)

// Schema is the immutable binding description of one pipeline, built from the reflection of each of
// its stages. It maps binding names to indices, owns the constant staging layout and the movements
// that scatter it into the fused constant buffers, and creates the ResourceSets that bind against it.
//
// A Schema holds no GPU objects and is safe to share between goroutines once built.
type Schema interface {
	// Label returns the schema's debug label.
	Label() string

	// LookupConstant returns the index of the named constant, or ConstantCount() if the name is unknown.
	//
	// Parameters:
	//   - name: the constant's shader variable name
	//
	// Returns:
	//   - int: the constant's index, usable with ResourceSet.BindConstant
	LookupConstant(name string) int

	// LookupSampler returns the index of the named sampler, or SamplerCount() if the name is unknown.
	//
	// Parameters:
	//   - name: the sampler's shader name
	//
	// Returns:
	//   - int: the sampler's index, usable with ResourceSet.BindSampler
	LookupSampler(name string) int

	// LookupSRV returns the index of the named shader resource, or SRVCount() if the name is unknown.
	//
	// Parameters:
	//   - name: the texture or storage buffer's shader name
	//
	// Returns:
	//   - int: the resource's index, usable with ResourceSet.BindSRV
	LookupSRV(name string) int

	// ConstantCount returns the number of unique constant names.
	ConstantCount() int

	// SamplerCount returns the number of unique sampler names.
	SamplerCount() int

	// SRVCount returns the number of unique shader-resource names.
	SRVCount() int

	// ConstantNames returns the unique constant names in index order.
	ConstantNames() []string

	// SamplerNames returns the unique sampler names in index order.
	SamplerNames() []string

	// SRVNames returns the unique shader-resource names in index order.
	SRVNames() []string

	// StagingLayout returns the staging entry of every constant followed by the zero-size dummy entry.
	StagingLayout() []UniqueConstant

	// StagingSize returns the staging block size in bytes.
	StagingSize() uint32

	// ConstantBufferSizes returns the byte size of every unique constant buffer.
	ConstantBufferSizes() []uint32

	// ConstantBufferName returns the shader name of the buffer representing unique constant buffer i.
	ConstantBufferName(i int) string

	// Movements returns the staging-to-buffer copy plan executed on every EndUpdate.
	Movements() []CBMovement

	// Stages returns the stages the schema was built from in pipeline order.
	Stages() []reflection.Stage

	// StageCounts returns the slot span of each category for a stage. Absent stages report zeros.
	StageCounts(stage reflection.Stage) StageCounts

	// BindIndices returns the per-slot unique indices of one stage and category. Entry i describes
	// slot i; an entry equal to the category's count (or buffer count) is unbound.
	BindIndices(stage reflection.Stage, category Category) []uint32

	// SlotGapPolicy returns how slot holes were filled when the schema was built.
	SlotGapPolicy() SlotGapPolicy

	// NewResourceSet creates a resource set with its own constant buffers.
	//
	// Parameters:
	//   - device: the device that creates the set's constant buffers
	//
	// Returns:
	//   - ResourceSet: the created set, with every slot unbound and zeroed constants
	//   - error: ErrNilDevice or an error wrapping ErrResourceCreation; no buffers leak on failure
	NewResourceSet(device Device) (ResourceSet, error)

	// DestroyResourceSet releases a resource set created by this schema.
	//
	// Parameters:
	//   - set: the set to destroy
	//
	// Returns:
	//   - error: ErrForeignResourceSet if this schema did not create set, ErrResourceSetReleased if it was already destroyed
	DestroyResourceSet(set ResourceSet) error
}

// schema implements the Schema interface.
type schema struct {
	mu *sync.Mutex

	label  string
	policy SlotGapPolicy
	inputs []*reflection.StageReflection

	constantNames  []string
	constantHashes []uint32
	samplerNames   []string
	samplerHashes  []uint32
	srvNames       []string
	srvHashes      []uint32

	staging     []UniqueConstant
	stagingSize uint32

	cbSizes   []uint32
	cbNames   []string
	movements []CBMovement
	stages    []reflection.Stage
	present   [reflection.StageCount]bool
	tables    [categoryCount][reflection.StageCount]stageTable
	bindings  [categoryCount][]uint32
	maxCounts [categoryCount]uint32
}

var _ Schema = &schema{}

func (s *schema) Label() string {
	return s.label
}

func (s *schema) LookupConstant(name string) int {
	return lookup(s.constantNames, name)
}

func (s *schema) LookupSampler(name string) int {
	return lookup(s.samplerNames, name)
}

func (s *schema) LookupSRV(name string) int {
	return lookup(s.srvNames, name)
}

// lookup is a linear scan; binding tables are small and lookups happen at setup time.
func lookup(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return len(names)
}

func (s *schema) ConstantCount() int {
	return len(s.constantNames)
}

func (s *schema) SamplerCount() int {
	return len(s.samplerNames)
}

func (s *schema) SRVCount() int {
	return len(s.srvNames)
}

func (s *schema) ConstantNames() []string {
	return append([]string(nil), s.constantNames...)
}

func (s *schema) SamplerNames() []string {
	return append([]string(nil), s.samplerNames...)
}

func (s *schema) SRVNames() []string {
	return append([]string(nil), s.srvNames...)
}

func (s *schema) StagingLayout() []UniqueConstant {
	return append([]UniqueConstant(nil), s.staging...)
}

func (s *schema) StagingSize() uint32 {
	return s.stagingSize
}

func (s *schema) ConstantBufferSizes() []uint32 {
	return append([]uint32(nil), s.cbSizes...)
}

func (s *schema) ConstantBufferName(i int) string {
	if i < 0 || i >= len(s.cbNames) {
		return ""
	}
	return s.cbNames[i]
}

func (s *schema) Movements() []CBMovement {
	return append([]CBMovement(nil), s.movements...)
}

func (s *schema) Stages() []reflection.Stage {
	return append([]reflection.Stage(nil), s.stages...)
}

func (s *schema) StageCounts(stage reflection.Stage) StageCounts {
	if stage < 0 || stage >= reflection.StageCount || !s.present[stage] {
		return StageCounts{}
	}
	return StageCounts{
		Samplers:        s.tables[CategorySampler][stage].count,
		ShaderResources: s.tables[CategoryShaderResource][stage].count,
		ConstantBuffers: s.tables[CategoryConstantBuffer][stage].count,
	}
}

func (s *schema) BindIndices(stage reflection.Stage, category Category) []uint32 {
	if stage < 0 || stage >= reflection.StageCount || category < 0 || category >= categoryCount {
		return nil
	}
	return append([]uint32(nil), s.stageIndices(stage, category)...)
}

// stageIndices returns the unexported, non-copied view used on the hot path.
func (s *schema) stageIndices(stage reflection.Stage, category Category) []uint32 {
	t := s.tables[category][stage]
	return s.bindings[category][t.start : t.start+t.count]
}

func (s *schema) SlotGapPolicy() SlotGapPolicy {
	return s.policy
}
