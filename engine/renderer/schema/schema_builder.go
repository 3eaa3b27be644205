package schema

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
)

// SchemaBuilderOption configures a schema before it is built.
type SchemaBuilderOption func(*schema)

// WithLabel sets the debug label used for the schema and the buffers of its resource sets.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - SchemaBuilderOption: a function that applies the label
func WithLabel(label string) SchemaBuilderOption {
	return func(s *schema) {
		s.label = label
	}
}

// WithStage adds one stage's reflection. Nil reflections are ignored, so a pipeline without a
// fragment stage can pass its missing reflection straight through.
//
// Parameters:
//   - refl: the reflection of one shader stage
//
// Returns:
//   - SchemaBuilderOption: a function that appends the stage
func WithStage(refl *reflection.StageReflection) SchemaBuilderOption {
	return func(s *schema) {
		if refl != nil {
			s.inputs = append(s.inputs, refl)
		}
	}
}

// WithSlotGapPolicy sets how holes in a stage's slot range are filled. Defaults to SlotGapRepeatPrevious.
//
// Parameters:
//   - policy: the gap policy
//
// Returns:
//   - SchemaBuilderOption: a function that applies the policy
func WithSlotGapPolicy(policy SlotGapPolicy) SchemaBuilderOption {
	return func(s *schema) {
		s.policy = policy
	}
}

// NewSchema builds a schema from the stages added through options. Building is atomic: on error no
// partial schema is returned.
//
// Parameters:
//   - options: the label, stages and gap policy
//
// Returns:
//   - Schema: the built schema
//   - error: ErrDuplicateStage or ErrNameCollision if the stages cannot be merged
func NewSchema(options ...SchemaBuilderOption) (Schema, error) {
	s := &schema{
		mu:     &sync.Mutex{},
		label:  "schema",
		policy: SlotGapRepeatPrevious,
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.build(); err != nil {
		return nil, fmt.Errorf("build schema %q: %w", s.label, err)
	}
	return s, nil
}

// NewPipelineSchema reflects a vertex and fragment shader and builds their schema.
//
// Parameters:
//   - reflector: the reflector used for both stages
//   - vs: the vertex shader blob
//   - fs: the fragment shader blob, or nil for a vertex-only pipeline
//   - options: additional schema options
//
// Returns:
//   - Schema: the built schema
//   - error: a reflection or build error
func NewPipelineSchema(reflector reflection.Reflector, vs, fs []byte, options ...SchemaBuilderOption) (Schema, error) {
	vsRefl, err := reflector.Reflect(reflection.StageVertex, vs)
	if err != nil {
		return nil, err
	}
	var fsRefl *reflection.StageReflection
	if len(fs) > 0 {
		if fsRefl, err = reflector.Reflect(reflection.StageFragment, fs); err != nil {
			return nil, err
		}
	}
	opts := append([]SchemaBuilderOption{WithStage(vsRefl), WithStage(fsRefl)}, options...)
	return NewSchema(opts...)
}

// NewComputeSchema reflects a compute shader and builds its schema.
//
// Parameters:
//   - reflector: the reflector for the compute stage
//   - cs: the compute shader blob
//   - options: additional schema options
//
// Returns:
//   - Schema: the built schema
//   - error: a reflection or build error
func NewComputeSchema(reflector reflection.Reflector, cs []byte, options ...SchemaBuilderOption) (Schema, error) {
	csRefl, err := reflector.Reflect(reflection.StageCompute, cs)
	if err != nil {
		return nil, err
	}
	return NewSchema(append([]SchemaBuilderOption{WithStage(csRefl)}, options...)...)
}
