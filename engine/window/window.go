package window

import (
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window is a native window that delivers input as common.KeyCode events and hands out a WebGPU
// surface descriptor.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the window is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	// Keys outside the supported set arrive as common.KeyUnknown.
	//
	// Parameters:
	//   - callback: function receiving the key code
	SetKeyDownCallback(callback func(key common.KeyCode))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the key code
	SetKeyUpCallback(callback func(key common.KeyCode))

	// SetMouseDownCallback sets the callback for mouse button presses.
	//
	// Parameters:
	//   - callback: function receiving the button (common.KeyMouseLeft, KeyMouseRight or KeyMouseMiddle)
	//     and the cursor position
	SetMouseDownCallback(callback func(button common.KeyCode, x, y int32))

	// SetMouseUpCallback sets the callback for mouse button releases.
	//
	// Parameters:
	//   - callback: function receiving the button and the cursor position
	SetMouseUpCallback(callback func(button common.KeyCode, x, y int32))

	// SetMouseMoveCallback sets the callback for mouse movement.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMouseMoveCallback(callback func(x, y int32))

	// SetCloseCallback sets the function called once when the window is asked to close,
	// by the platform or by Escape when WithCloseOnEscape is enabled.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetCloseCallback(callback func())

	// SurfaceDescriptor returns the descriptor for creating a WebGPU surface on this window,
	// or nil once the window is closed.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close destroys the native window. The close callback runs first if it has not already.
	//
	// Returns:
	//   - error: ErrNotOpen if the window was never opened or is already closed
	Close() error

	// ProcessMessages polls events and calls the update callback until the window closes.
	// Returns immediately if the window is not open.
	ProcessMessages()

	// Width returns the current window client area width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current window client area height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// platform is the native side of a window. The GLFW implementation lives in window_glfw.go.
type platform interface {
	// poll dispatches pending events and reports whether the window should keep running.
	poll() bool
	alive() bool
	surfaceDescriptor() *wgpu.SurfaceDescriptor
	destroy()
}

// engineWindow holds configuration, the current framebuffer size and the event callbacks.
// Callbacks run on the thread that calls ProcessMessages.
type engineWindow struct {
	title string

	// Size limits in screen coordinates.
	minWidth, minHeight int
	maxWidth, maxHeight int

	// Framebuffer size in pixels.
	width, height int

	native platform

	onUpdate    func()
	onResize    func(width, height int)
	onScroll    func(delta float32)
	onKeyDown   func(key common.KeyCode)
	onKeyUp     func(key common.KeyCode)
	onMouseDown func(button common.KeyCode, x, y int32)
	onMouseUp   func(button common.KeyCode, x, y int32)
	onMouseMove func(x, y int32)

	// onClose runs once, the first time a close is requested.
	onClose func()
	closed  bool

	// closeOnEscape makes Escape request a close instead of reaching onKeyDown.
	closeOnEscape bool
}

var _ Window = &engineWindow{}

// NewWindow opens a GLFW window configured by options and locks the calling goroutine to its
// OS thread. It panics if GLFW cannot create the window.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
func NewWindow(options ...WindowBuilderOption) Window {
	w := newEngineWindow(options...)
	native, err := newGLFWPlatform(w)
	if err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	w.native = native
	return w
}

// newEngineWindow applies defaults and options without touching the platform.
func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:     "Default Window Title",
		maxWidth:  1600,
		maxHeight: 1200,
		minWidth:  600,
		minHeight: 200,
		width:     1280,
		height:    720,

		closeOnEscape: true,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(key common.KeyCode)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(key common.KeyCode)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMouseDownCallback(callback func(button common.KeyCode, x, y int32)) {
	w.onMouseDown = callback
}

func (w *engineWindow) SetMouseUpCallback(callback func(button common.KeyCode, x, y int32)) {
	w.onMouseUp = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y int32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SetCloseCallback(callback func()) {
	w.onClose = callback
}

// keyEvent routes a key press or release. It reports whether the event requested a close.
func (w *engineWindow) keyEvent(key common.KeyCode, pressed bool) bool {
	if key == common.KeyEscape && w.closeOnEscape {
		if pressed {
			w.requestClose()
			return true
		}
		return false
	}
	if pressed {
		if w.onKeyDown != nil {
			w.onKeyDown(key)
		}
	} else if w.onKeyUp != nil {
		w.onKeyUp(key)
	}
	return false
}

func (w *engineWindow) mouseButtonEvent(button common.KeyCode, pressed bool, x, y int32) {
	if button == common.KeyUnknown {
		return
	}
	if pressed {
		if w.onMouseDown != nil {
			w.onMouseDown(button, x, y)
		}
	} else if w.onMouseUp != nil {
		w.onMouseUp(button, x, y)
	}
}

func (w *engineWindow) scrollEvent(delta float32) {
	if w.onScroll != nil {
		w.onScroll(delta)
	}
}

func (w *engineWindow) mouseMoveEvent(x, y int32) {
	if w.onMouseMove != nil {
		w.onMouseMove(x, y)
	}
}

func (w *engineWindow) resizeEvent(width, height int) {
	w.width = width
	w.height = height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

// requestClose runs onClose the first time it is called.
func (w *engineWindow) requestClose() {
	if w.closed {
		return
	}
	w.closed = true
	if w.onClose != nil {
		w.onClose()
	}
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.native == nil {
		return nil
	}
	return w.native.surfaceDescriptor()
}

func (w *engineWindow) IsRunning() bool {
	return w.native != nil && w.native.alive()
}

// Close runs the close callback if it has not run yet, then destroys the native window.
func (w *engineWindow) Close() error {
	if w.native == nil {
		return ErrNotOpen
	}
	w.requestClose()
	w.native.destroy()
	w.native = nil
	return nil
}

func (w *engineWindow) ProcessMessages() {
	for w.native != nil && w.native.poll() {
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
