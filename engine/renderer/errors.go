package renderer

import "errors"

var (
	// ErrUnknownPipeline is returned when a pipeline key has not been registered.
	ErrUnknownPipeline = errors.New("pipeline not registered")

	// ErrNoFrame is returned by Draw and Dispatch outside BeginFrame/EndFrame or BeginComputeFrame/EndComputeFrame.
	ErrNoFrame = errors.New("no frame in progress")

	// ErrForeignHandle is returned when a handle was not created by this renderer.
	ErrForeignHandle = errors.New("handle not created by this renderer")

	// ErrReleasedHandle is returned when a released handle is used.
	ErrReleasedHandle = errors.New("handle already released")

	// ErrUnboundResource is returned when a binding the pipeline layout declares has no handle bound.
	ErrUnboundResource = errors.New("binding has no resource bound")

	// ErrBindingConflict is returned when stages sharing a binding have different handles bound to it.
	ErrBindingConflict = errors.New("stages bind different resources to a shared binding")

	// ErrHandleKind is returned when a bound handle does not match the kind of its binding.
	ErrHandleKind = errors.New("handle kind does not match binding")

	// ErrUnsupportedBinding is returned when a layout entry cannot be mapped to a binding category.
	ErrUnsupportedBinding = errors.New("unsupported binding")

	// ErrUnsupportedBackend is returned by NewRenderer for an unknown RendererBackendType.
	ErrUnsupportedBackend = errors.New("unsupported renderer backend")

	// ErrSampleCount is returned by NewRenderer for an MSAA count other than 1, 4, 8 or 16.
	ErrSampleCount = errors.New("unsupported msaa sample count")
)
