package engine

import "github.com/Carmen-Shannon/oxy-bind/common"

// Controller receives the engine's lifecycle and input events. All methods run on the thread that
// called Run. Embed BaseController to implement only the events you need.
type Controller interface {
	// OnCreate runs once after the window, renderer and pipeline builder exist. Returning an error
	// aborts Run with that error.
	OnCreate(e Engine) error

	// OnFrame runs once per frame with a render pass and a compute batch open.
	OnFrame(e Engine, dt float32)

	// OnResize runs after the renderer has been resized.
	OnResize(e Engine, width, height int)

	OnKeyDown(e Engine, key common.KeyCode)
	OnKeyUp(e Engine, key common.KeyCode)
	OnMouseDown(e Engine, button common.KeyCode, x, y int32)
	OnMouseUp(e Engine, button common.KeyCode, x, y int32)
	OnMouseMove(e Engine, x, y int32)
	OnScroll(e Engine, delta float32)

	// OnClose runs once before the renderer is released. Release resource sets and handles here.
	OnClose(e Engine)
}

// BaseController implements every Controller method as a no-op.
type BaseController struct{}

var _ Controller = BaseController{}

func (BaseController) OnCreate(Engine) error                            { return nil }
func (BaseController) OnFrame(Engine, float32)                          {}
func (BaseController) OnResize(Engine, int, int)                        {}
func (BaseController) OnKeyDown(Engine, common.KeyCode)                 {}
func (BaseController) OnKeyUp(Engine, common.KeyCode)                   {}
func (BaseController) OnMouseDown(Engine, common.KeyCode, int32, int32) {}
func (BaseController) OnMouseUp(Engine, common.KeyCode, int32, int32)   {}
func (BaseController) OnMouseMove(Engine, int32, int32)                 {}
func (BaseController) OnScroll(Engine, float32)                         {}
func (BaseController) OnClose(Engine)                                   {}
