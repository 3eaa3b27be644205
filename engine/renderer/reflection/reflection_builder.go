package reflection

// ReflectorBuilderOption is a functional option applied to a Reflector during construction via NewReflector.
type ReflectorBuilderOption func(*nagaReflector)

// WithEntryPoint selects a named entry point instead of the first one declared for the stage.
// Useful when one WGSL module holds several entry points of the same stage.
//
// Parameters:
//   - name: the entry point function name
//
// Returns:
//   - ReflectorBuilderOption: a function that applies the entry point option to a reflector
func WithEntryPoint(name string) ReflectorBuilderOption {
	return func(r *nagaReflector) {
		r.entryPoint = name
	}
}

// WithAllGlobals disables usage filtering so every bound global in the module is reported for the
// stage, not only the ones reachable from its entry point.
//
// Parameters:
//   - all: true to report every bound global
//
// Returns:
//   - ReflectorBuilderOption: a function that applies the option to a reflector
func WithAllGlobals(all bool) ReflectorBuilderOption {
	return func(r *nagaReflector) {
		r.allGlobals = all
	}
}
