package window

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngineWindowDefaultsAndOptions(t *testing.T) {
	w := newEngineWindow()
	assert.Equal(t, "Default Window Title", w.title)
	assert.Equal(t, 1280, w.Width())
	assert.Equal(t, 720, w.Height())
	assert.True(t, w.closeOnEscape)

	w = newEngineWindow(
		WithTitle("quad"),
		WithWidth(800),
		WithHeight(600),
		WithMinWidth(320),
		WithMaxHeight(900),
		WithCloseOnEscape(false),
	)
	assert.Equal(t, "quad", w.title)
	assert.Equal(t, 800, w.Width())
	assert.Equal(t, 600, w.Height())
	assert.Equal(t, 320, w.minWidth)
	assert.Equal(t, 900, w.maxHeight)
	assert.False(t, w.closeOnEscape)
}

func TestKeyEvents(t *testing.T) {
	w := newEngineWindow()
	var down, up []common.KeyCode
	closes := 0
	w.SetKeyDownCallback(func(k common.KeyCode) { down = append(down, k) })
	w.SetKeyUpCallback(func(k common.KeyCode) { up = append(up, k) })
	w.SetCloseCallback(func() { closes++ })

	assert.False(t, w.keyEvent(common.KeyW, true))
	assert.False(t, w.keyEvent(common.KeyW, false))
	assert.True(t, w.keyEvent(common.KeyEscape, true))
	assert.False(t, w.keyEvent(common.KeyEscape, false))
	assert.True(t, w.keyEvent(common.KeyEscape, true))

	assert.Equal(t, []common.KeyCode{common.KeyW}, down)
	assert.Equal(t, []common.KeyCode{common.KeyW}, up)
	assert.Equal(t, 1, closes, "close callback runs once")
}

func TestEscapeIsAKeyWhenCloseOnEscapeDisabled(t *testing.T) {
	w := newEngineWindow(WithCloseOnEscape(false))
	var down []common.KeyCode
	w.SetKeyDownCallback(func(k common.KeyCode) { down = append(down, k) })

	assert.False(t, w.keyEvent(common.KeyEscape, true))
	assert.Equal(t, []common.KeyCode{common.KeyEscape}, down)
}

func TestMouseButtonEvents(t *testing.T) {
	w := newEngineWindow()
	type press struct {
		button common.KeyCode
		x, y   int32
	}
	var downs, ups []press
	w.SetMouseDownCallback(func(b common.KeyCode, x, y int32) { downs = append(downs, press{b, x, y}) })
	w.SetMouseUpCallback(func(b common.KeyCode, x, y int32) { ups = append(ups, press{b, x, y}) })

	w.mouseButtonEvent(common.MouseButtonKeyCode(0), true, 10, 20)
	w.mouseButtonEvent(common.MouseButtonKeyCode(1), false, 5, 6)
	w.mouseButtonEvent(common.MouseButtonKeyCode(7), true, 0, 0)

	assert.Equal(t, []press{{common.KeyMouseLeft, 10, 20}}, downs)
	assert.Equal(t, []press{{common.KeyMouseRight, 5, 6}}, ups)
}

func TestResizeEventUpdatesSize(t *testing.T) {
	w := newEngineWindow()
	var gotW, gotH int
	w.SetResizeCallback(func(width, height int) { gotW, gotH = width, height })

	w.resizeEvent(1024, 768)
	assert.Equal(t, 1024, w.Width())
	assert.Equal(t, 768, w.Height())
	assert.Equal(t, 1024, gotW)
	assert.Equal(t, 768, gotH)
}

func TestNotRunningWithoutPlatformWindow(t *testing.T) {
	w := newEngineWindow()
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.ErrorIs(t, w.Close(), ErrNotOpen)
	w.ProcessMessages()
}

type fakePlatform struct {
	frames    int
	polls     int
	destroyed bool
}

func (p *fakePlatform) poll() bool {
	p.polls++
	return p.polls <= p.frames
}

func (p *fakePlatform) alive() bool                                { return !p.destroyed }
func (p *fakePlatform) surfaceDescriptor() *wgpu.SurfaceDescriptor { return &wgpu.SurfaceDescriptor{} }
func (p *fakePlatform) destroy()                                   { p.destroyed = true }

func TestProcessMessagesRunsUpdateUntilPlatformStops(t *testing.T) {
	w := newEngineWindow()
	native := &fakePlatform{frames: 3}
	w.native = native

	updates := 0
	w.SetUpdateCallback(func() { updates++ })
	w.ProcessMessages()

	assert.Equal(t, 3, updates)
	assert.Equal(t, 4, native.polls)
	assert.True(t, w.IsRunning())
	assert.NotNil(t, w.SurfaceDescriptor())
}

func TestCloseFromUpdateEndsLoop(t *testing.T) {
	w := newEngineWindow()
	native := &fakePlatform{frames: 100}
	w.native = native

	updates, closes := 0, 0
	w.SetCloseCallback(func() { closes++ })
	w.SetUpdateCallback(func() {
		updates++
		if updates == 2 {
			require.NoError(t, w.Close())
		}
	})
	w.ProcessMessages()

	assert.Equal(t, 2, updates)
	assert.Equal(t, 1, closes)
	assert.True(t, native.destroyed)
	assert.False(t, w.IsRunning())
	assert.ErrorIs(t, w.Close(), ErrNotOpen)
	assert.Equal(t, 1, closes)
}

func TestScrollAndMoveEvents(t *testing.T) {
	w := newEngineWindow()
	w.scrollEvent(1)
	w.mouseMoveEvent(1, 2)

	var delta float32
	var x, y int32
	w.SetScrollCallback(func(d float32) { delta = d })
	w.SetMouseMoveCallback(func(mx, my int32) { x, y = mx, my })
	w.scrollEvent(-0.5)
	w.mouseMoveEvent(30, 40)

	assert.Equal(t, float32(-0.5), delta)
	assert.Equal(t, int32(30), x)
	assert.Equal(t, int32(40), y)
}
