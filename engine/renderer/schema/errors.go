package schema

import "errors"

var (
	// ErrInvalidStage is returned when a reflection carries a stage outside the pipeline stages.
	ErrInvalidStage = errors.New("invalid shader stage")

	// ErrDuplicateStage is returned when two reflections for the same stage are given to one schema.
	ErrDuplicateStage = errors.New("stage supplied more than once")

	// ErrNameCollision is returned when two different names in one category hash to the same value.
	ErrNameCollision = errors.New("binding name hash collision")

	// ErrNilDevice is returned when a resource set is requested without a device.
	ErrNilDevice = errors.New("device is nil")

	// ErrResourceCreation wraps GPU object creation failures during resource-set creation.
	ErrResourceCreation = errors.New("failed to create resource set")

	// ErrForeignResourceSet is returned when a resource set is destroyed through a schema that did not create it.
	ErrForeignResourceSet = errors.New("resource set belongs to a different schema")

	// ErrResourceSetReleased is returned when a resource set is destroyed twice.
	ErrResourceSetReleased = errors.New("resource set already released")

	// ErrCacheClosed is returned by Cache.Get after the cache has been closed.
	ErrCacheClosed = errors.New("schema cache is closed")
)
