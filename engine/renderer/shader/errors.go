package shader

import "errors"

var (
	// ErrEmptySource is returned when a shader is created without source.
	ErrEmptySource = errors.New("shader source is empty")

	// ErrMalformedAnnotation is returned for an @oxy: annotation without its required argument.
	ErrMalformedAnnotation = errors.New("malformed annotation")

	// ErrUnknownInclude is returned when an @oxy:include names a snippet that was never registered.
	ErrUnknownInclude = errors.New("unknown include")
)
