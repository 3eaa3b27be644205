package renderer

import (
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/pipeline"
)

// RendererBuilderOption configures NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPipeline queues p for registration right after the surface is configured. A failed
// registration makes NewRenderer return the error.
func WithPipeline(p pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pending = append(r.pending, p)
	}
}

// WithPipelines queues several pipelines, registered in argument order.
//
// Parameters:
//   - pipelines: render or compute pipelines from a pipeline.Builder
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithPipelines(pipelines ...pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pending = append(r.pending, pipelines...)
	}
}

// WithPresentMode picks vsync or uncapped presentation. Without it the surface presents immediately.
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the attachment sample count. Defaults to MSAA4x; counts outside 1, 4, 8 and 16
// fail NewRenderer with ErrSampleCount.
//
// Parameters:
//   - count: the sample count
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = &count
	}
}

// WithForceSoftwareRenderer requests the fallback (CPU) adapter. Needs a software Vulkan driver
// such as lavapipe or SwiftShader; useful on headless CI machines.
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
