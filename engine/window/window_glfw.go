package window

import (
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwPlatform is the GLFW-backed platform. GLFW calls must stay on the thread that created it.
type glfwPlatform struct {
	window  *glfw.Window
	running bool
}

var _ platform = &glfwPlatform{}

// newGLFWPlatform opens a GLFW window without a client API (WebGPU owns presentation) and routes
// its events into w.
//
// Reference: https://www.glfw.org/docs/latest/window_guide.html
func newGLFWPlatform(w *engineWindow) (*glfwPlatform, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("init glfw: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create glfw window: %w", err)
	}
	p := &glfwPlatform{window: win, running: true}

	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		code := common.KeyCodeFromPlatform(int(key))
		if action == glfw.Release {
			w.keyEvent(code, false)
			return
		}
		// Press and repeat both count as key down.
		if w.keyEvent(code, true) {
			p.stop()
		}
	})
	win.SetCloseCallback(func(_ *glfw.Window) {
		w.requestClose()
	})
	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		w.scrollEvent(float32(yoff))
	})
	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		x, y := win.GetCursorPos()
		w.mouseButtonEvent(common.MouseButtonKeyCode(int(button)), action == glfw.Press, int32(x), int32(y))
	})
	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.mouseMoveEvent(int32(x), int32(y))
	})

	// Framebuffer size, not window size: the surface is configured in pixels, which differ on
	// high-DPI displays.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resizeEvent(width, height)
	})
	w.width, w.height = win.GetFramebufferSize()

	return p, nil
}

func (p *glfwPlatform) stop() {
	p.running = false
	p.window.SetShouldClose(true)
}

// poll drains pending events without blocking.
func (p *glfwPlatform) poll() bool {
	glfw.PollEvents()
	return p.alive()
}

func (p *glfwPlatform) alive() bool {
	return p.running && !p.window.ShouldClose()
}

// surfaceDescriptor goes through wgpuglfw, which picks the Win32, X11, Wayland or Metal variant.
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func (p *glfwPlatform) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(p.window)
}

func (p *glfwPlatform) destroy() {
	p.stop()
	p.window.Destroy()
	glfw.Terminate()
}
