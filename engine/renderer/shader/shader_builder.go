package shader

import "github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"

// ShaderBuilderOption is a functional option applied to a Shader during construction via NewShader.
type ShaderBuilderOption func(*shader)

// WithReflector overrides the reflector. By default the shader reflects its own entry point with
// reflection.NewReflector.
//
// Parameters:
//   - r: the reflector to use
//
// Returns:
//   - ShaderBuilderOption: a function that applies the reflector to a shader
func WithReflector(r reflection.Reflector) ShaderBuilderOption {
	return func(s *shader) {
		s.reflector = r
	}
}

// WithInclude registers a WGSL snippet that `//@oxy:include <name>` lines expand to. Sharing one
// struct snippet between stage files keeps their constant buffer layouts identical, which lets the
// schema fuse them into a single buffer.
//
// Parameters:
//   - name: the include name
//   - source: the WGSL text substituted for the annotation
//
// Returns:
//   - ShaderBuilderOption: a function that registers the snippet
func WithInclude(name, source string) ShaderBuilderOption {
	return func(s *shader) {
		s.pp.Register(name, source)
	}
}

// WithPreProcessor replaces the pre-processor, typically with one shared between shaders that
// already has every include registered.
//
// Parameters:
//   - pp: the pre-processor to use
//
// Returns:
//   - ShaderBuilderOption: a function that applies the pre-processor to a shader
func WithPreProcessor(pp PreProcessor) ShaderBuilderOption {
	return func(s *shader) {
		if pp != nil {
			s.pp = pp
		}
	}
}
