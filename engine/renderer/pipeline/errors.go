package pipeline

import "errors"

var (
	// ErrMissingShader is returned when a pipeline lacks the shader its type requires.
	ErrMissingShader = errors.New("missing shader")

	// ErrStageMismatch is returned when a shader is attached to a slot of another stage or pipeline type.
	ErrStageMismatch = errors.New("shader stage does not match pipeline")

	// ErrLayoutConflict is returned when two stages declare different bindings at the same group and binding.
	ErrLayoutConflict = errors.New("conflicting bind group layouts")
)
