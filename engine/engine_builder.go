package engine

import (
	"github.com/Carmen-Shannon/oxy-bind/config"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer"
	"github.com/Carmen-Shannon/oxy-bind/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig sets the configuration and installs the logger its [log] table describes.
// A nil config is ignored.
//
// Parameters:
//   - c: a validated configuration, usually from config.Load
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(c *config.Config) EngineBuilderOption {
	return func(e *engine) {
		if c == nil {
			return
		}
		e.cfg = c
		installLogger(c)
	}
}

// WithController sets the controller receiving lifecycle and input events.
//
// Parameters:
//   - c: the controller
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithController(c Controller) EngineBuilderOption {
	return func(e *engine) {
		if c != nil {
			e.controller = c
		}
	}
}

// WithProfiling enables or disables performance profiling output, overriding the config.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingOption = &enabled
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create one from the config.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRendererOptions appends renderer options after the ones derived from the config,
// for example renderer.WithPipeline.
//
// Parameters:
//   - options: renderer options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRendererOptions(options ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOptions = append(e.rendererOptions, options...)
	}
}

// WithRenderFrameLimit sets an optional frame rate cap in frames per second, overriding the config.
// Pass 0 to uncap the loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
		e.frameLimitSet = true
	}
}
