package renderer

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentModeSurfaceMode(t *testing.T) {
	assert.Equal(t, wgpu.PresentModeFifo, PresentModeVSync.surfaceMode())
	assert.Equal(t, wgpu.PresentModeImmediate, PresentModeUncapped.surfaceMode())
	assert.Equal(t, wgpu.PresentModeImmediate, PresentMode(9).surfaceMode())

	assert.Equal(t, "vsync", PresentModeVSync.String())
	assert.Equal(t, "uncapped", PresentModeUncapped.String())
	assert.Equal(t, "PresentMode(9)", PresentMode(9).String())
}

func TestMSAASampleCountValid(t *testing.T) {
	for _, c := range []MSAASampleCount{MSAAOff, MSAA4x, MSAA8x, MSAA16x} {
		assert.True(t, c.Valid(), "%d", c)
	}
	for _, c := range []MSAASampleCount{0, 2, 3, 32} {
		assert.False(t, c.Valid(), "%d", c)
	}
}

func TestNewRendererRejectsOptionsBeforeTouchingTheGPU(t *testing.T) {
	_, err := NewRenderer(BackendTypeWGPU, nil, WithMSAA(2))
	require.ErrorIs(t, err, ErrSampleCount)

	_, err = NewRenderer(RendererBackendType(7), nil)
	require.ErrorIs(t, err, ErrUnsupportedBackend)
	assert.Contains(t, err.Error(), "RendererBackendType(7)")
}
