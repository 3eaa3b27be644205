package reflection

import "errors"

var (
	// ErrReflection is wrapped by every failure to extract metadata from a shader blob.
	ErrReflection = errors.New("shader reflection failed")

	// ErrNoEntryPoint is returned when a blob has no entry point for the requested stage.
	ErrNoEntryPoint = errors.New("no entry point for stage")

	// ErrUnsizedConstant is returned when a uniform contains a runtime-sized array.
	ErrUnsizedConstant = errors.New("runtime-sized array in uniform buffer")

	// ErrSlotOutOfRange is returned when a @binding index does not fit in SlotsPerGroup.
	ErrSlotOutOfRange = errors.New("binding index out of range")
)
