package engine

import (
	"errors"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/config"
	"github.com/Carmen-Shannon/oxy-bind/engine/profiler"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/schema"
	"github.com/Carmen-Shannon/oxy-bind/engine/window"
)

// ErrAlreadyRunning is returned by Run when the engine has already been run.
var ErrAlreadyRunning = errors.New("engine already running")

// engine implements the Engine interface.
// Owns the window, the renderer and the pipeline builder, and drives the controller.
type engine struct {
	cfg        *config.Config
	controller Controller

	window    window.Window
	renderer  renderer.Renderer
	pipelines pipeline.Builder

	rendererOptions []renderer.RendererBuilderOption

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool
	profilingOption  *bool
	lastStats        renderer.Stats

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	frameLimitSet    bool
	lastFrame        time.Time

	started  atomic.Bool
	quit     atomic.Bool
	quitOnce sync.Once
}

// Engine is the main entry point for the engine.
// It creates the window and renderer from the configuration and runs the frame loop.
type Engine interface {
	// Window returns the underlying window, nil before Run.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer, nil before Run. It is the schema.Device and schema.Context
	// resource sets are created on and applied to.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// Pipelines returns the pipeline builder. Pipelines it creates share one schema cache.
	//
	// Returns:
	//   - pipeline.Builder: the builder
	Pipelines() pipeline.Builder

	// Config returns the configuration the engine was built with.
	//
	// Returns:
	//   - *config.Config: the configuration
	Config() *config.Config

	// EnableProfiler enables periodic frame and binding statistics in the log.
	EnableProfiler()

	// DisableProfiler disables profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run creates the window (unless WithWindow supplied one) and the renderer, calls
	// Controller.OnCreate, then runs the frame loop on the calling thread until the window closes
	// or Quit is called. Everything the engine created is released before Run returns.
	//
	// Returns:
	//   - error: the OnCreate error, a renderer creation error or ErrAlreadyRunning
	Run() error

	// Quit asks the frame loop to stop after the current frame.
	// Safe to call multiple times and from any goroutine.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Without WithConfig the engine uses config.Default; without WithController a BaseController.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		cfg:        config.Default(),
		controller: BaseController{},
	}

	for _, opt := range options {
		opt(e)
	}

	e.profiler = profiler.NewProfiler(profiler.WithInterval(time.Duration(e.cfg.Profiler.IntervalMS) * time.Millisecond))
	enabled := e.cfg.Profiler.Enabled
	if e.profilingOption != nil {
		enabled = *e.profilingOption
	}
	e.profilingEnabled.Store(enabled)
	if !e.frameLimitSet {
		e.renderFrameLimit = frameDuration(e.cfg.Renderer.FrameLimit)
	}
	e.pipelines = pipeline.NewBuilder(pipeline.WithCacheOptions(cacheOptions(e.cfg)...))
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Pipelines() pipeline.Builder {
	return e.pipelines
}

func (e *engine) Config() *config.Config {
	return e.cfg
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		e.quit.Store(true)
	})
}

func (e *engine) Run() error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	// GLFW and the surface must stay on one OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if e.window == nil {
		e.window = window.NewWindow(windowOptions(e.cfg)...)
	}
	defer e.window.Close()
	defer e.pipelines.Close()

	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, e.window, append(rendererOptions(e.cfg), e.rendererOptions...)...)
	if err != nil {
		return err
	}
	e.renderer = r
	defer r.Release()

	e.bindWindow()

	if err := e.controller.OnCreate(e); err != nil {
		common.Logger().Warn("controller create failed", "error", err)
		return err
	}
	// Only a created controller is closed; the window closes before the renderer is released.
	e.window.SetCloseCallback(func() {
		e.controller.OnClose(e)
	})

	common.Logger().Info("engine running",
		"width", e.window.Width(),
		"height", e.window.Height(),
		"frameLimit", e.renderFrameLimit)

	e.lastFrame = time.Now()
	e.window.SetUpdateCallback(e.frame)
	e.window.ProcessMessages()
	return nil
}

// bindWindow forwards window events to the renderer and the controller.
func (e *engine) bindWindow() {
	e.window.SetResizeCallback(func(width, height int) {
		e.renderer.Resize(width, height)
		e.controller.OnResize(e, width, height)
	})
	e.window.SetKeyDownCallback(func(key common.KeyCode) {
		e.controller.OnKeyDown(e, key)
	})
	e.window.SetKeyUpCallback(func(key common.KeyCode) {
		e.controller.OnKeyUp(e, key)
	})
	e.window.SetMouseDownCallback(func(button common.KeyCode, x, y int32) {
		e.controller.OnMouseDown(e, button, x, y)
	})
	e.window.SetMouseUpCallback(func(button common.KeyCode, x, y int32) {
		e.controller.OnMouseUp(e, button, x, y)
	})
	e.window.SetMouseMoveCallback(func(x, y int32) {
		e.controller.OnMouseMove(e, x, y)
	})
	e.window.SetScrollCallback(func(delta float32) {
		e.controller.OnScroll(e, delta)
	})
}

// frame runs one iteration of the loop: compute batch and render pass open, OnFrame, submit.
func (e *engine) frame() {
	if e.quit.Load() {
		e.window.Close()
		return
	}

	now := time.Now()
	dt := float32(now.Sub(e.lastFrame).Seconds())
	e.lastFrame = now

	r := e.renderer
	if err := r.BeginComputeFrame(); err != nil {
		common.Logger().Warn("compute frame failed", "error", err)
		return
	}
	frameErr := r.BeginFrame()
	if frameErr != nil {
		common.Logger().Debug("render frame skipped", "error", frameErr)
	}

	e.controller.OnFrame(e, dt)

	r.EndComputeFrame()
	if frameErr == nil {
		r.EndFrame()
		r.Present()
	}

	if e.profilingEnabled.Load() {
		stats := r.Stats()
		if e.profiler.Tick(slog.Any("binding", stats.Sub(e.lastStats))) {
			e.lastStats = stats
		}
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

func windowOptions(c *config.Config) []window.WindowBuilderOption {
	return []window.WindowBuilderOption{
		window.WithTitle(c.Window.Title),
		window.WithWidth(c.Window.Width),
		window.WithHeight(c.Window.Height),
		window.WithMinWidth(c.Window.MinWidth),
		window.WithMinHeight(c.Window.MinHeight),
		window.WithMaxWidth(c.Window.MaxWidth),
		window.WithMaxHeight(c.Window.MaxHeight),
		window.WithCloseOnEscape(c.Window.CloseOnEscape),
	}
}

func presentMode(c *config.Config) renderer.PresentMode {
	if c.Renderer.PresentMode == config.PresentUncapped {
		return renderer.PresentModeUncapped
	}
	return renderer.PresentModeVSync
}

func rendererOptions(c *config.Config) []renderer.RendererBuilderOption {
	return []renderer.RendererBuilderOption{
		renderer.WithPresentMode(presentMode(c)),
		renderer.WithMSAA(renderer.MSAASampleCount(c.Renderer.MSAA)),
		renderer.WithForceSoftwareRenderer(c.Renderer.ForceSoftware),
	}
}

func slotGapPolicy(c *config.Config) schema.SlotGapPolicy {
	if c.Binding.SlotGap == config.SlotGapUnbound {
		return schema.SlotGapUnbound
	}
	return schema.SlotGapRepeatPrevious
}

func cacheOptions(c *config.Config) []schema.CacheBuilderOption {
	opts := []schema.CacheBuilderOption{schema.WithCacheSlotGapPolicy(slotGapPolicy(c))}
	if c.Binding.ReflectionWorkers > 0 {
		opts = append(opts, schema.WithReflectionWorkers(c.Binding.ReflectionWorkers))
	}
	return opts
}

// installLogger routes the module's logging through the [log] table.
func installLogger(c *config.Config) {
	common.SetLogger(c.NewLogger(os.Stderr))
}
