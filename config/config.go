// Package config loads the TOML settings a host reads at startup: window, renderer, binding
// policy, profiler and logging. Absent keys keep their Default values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Present modes accepted in [renderer] present_mode.
const (
	PresentVSync    = "vsync"
	PresentUncapped = "uncapped"
)

// Slot gap policies accepted in [binding] slot_gap.
const (
	SlotGapRepeatPrevious = "repeat-previous"
	SlotGapUnbound        = "unbound"
)

// Config is the root of the configuration file.
type Config struct {
	Window   Window   `toml:"window"`
	Renderer Renderer `toml:"renderer"`
	Binding  Binding  `toml:"binding"`
	Profiler Profiler `toml:"profiler"`
	Log      Log      `toml:"log"`
}

type Window struct {
	Title         string `toml:"title"`
	Width         int    `toml:"width"`
	Height        int    `toml:"height"`
	MinWidth      int    `toml:"min_width"`
	MinHeight     int    `toml:"min_height"`
	MaxWidth      int    `toml:"max_width"`
	MaxHeight     int    `toml:"max_height"`
	CloseOnEscape bool   `toml:"close_on_escape"`
}

type Renderer struct {
	PresentMode   string `toml:"present_mode" comment:"vsync or uncapped"`
	MSAA          uint32 `toml:"msaa" comment:"1, 4, 8 or 16"`
	ForceSoftware bool   `toml:"force_software"`
	// FrameLimit caps frames per second; 0 is uncapped.
	FrameLimit float64 `toml:"frame_limit"`
}

// Binding configures schema construction.
type Binding struct {
	SlotGap string `toml:"slot_gap" comment:"repeat-previous or unbound"`
	// ReflectionWorkers bounds the goroutines reflecting shader stages; 0 uses the cache default.
	ReflectionWorkers int `toml:"reflection_workers"`
}

type Profiler struct {
	Enabled    bool `toml:"enabled"`
	IntervalMS int  `toml:"interval_ms"`
}

type Log struct {
	Level  string `toml:"level" comment:"debug, info, warn or error"`
	Format string `toml:"format" comment:"text or json"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - *Config: a new Config holding the defaults
func Default() *Config {
	return &Config{
		Window: Window{
			Title:         "oxy-bind",
			Width:         1280,
			Height:        720,
			MinWidth:      600,
			MinHeight:     200,
			MaxWidth:      1600,
			MaxHeight:     1200,
			CloseOnEscape: true,
		},
		Renderer: Renderer{
			PresentMode: PresentVSync,
			MSAA:        4,
		},
		Binding: Binding{
			SlotGap: SlotGapRepeatPrevious,
		},
		Profiler: Profiler{
			IntervalMS: 1000,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and validates a TOML file on top of Default.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - *Config: the loaded configuration
//   - error: a read, decode or validation error
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Decode reads TOML from r on top of Default and validates the result. Unknown keys are rejected.
//
// Parameters:
//   - r: the TOML source
//
// Returns:
//   - *Config: the decoded configuration
//   - error: a decode or validation error
func Decode(r io.Reader) (*Config, error) {
	c := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes c as TOML.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - error: an encode or write error
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Validate checks value ranges and enumerations.
//
// Returns:
//   - error: an error wrapping ErrInvalid naming the first bad field, or nil
func (c *Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	case c.Window.MinWidth > c.Window.MaxWidth || c.Window.MinHeight > c.Window.MaxHeight:
		return fmt.Errorf("%w: window min size exceeds max size", ErrInvalid)
	}

	switch c.Renderer.PresentMode {
	case PresentVSync, PresentUncapped:
	default:
		return fmt.Errorf("%w: renderer.present_mode %q", ErrInvalid, c.Renderer.PresentMode)
	}
	switch c.Renderer.MSAA {
	case 1, 4, 8, 16:
	default:
		return fmt.Errorf("%w: renderer.msaa %d", ErrInvalid, c.Renderer.MSAA)
	}
	if c.Renderer.FrameLimit < 0 {
		return fmt.Errorf("%w: renderer.frame_limit %g", ErrInvalid, c.Renderer.FrameLimit)
	}

	switch c.Binding.SlotGap {
	case SlotGapRepeatPrevious, SlotGapUnbound:
	default:
		return fmt.Errorf("%w: binding.slot_gap %q", ErrInvalid, c.Binding.SlotGap)
	}
	if c.Binding.ReflectionWorkers < 0 {
		return fmt.Errorf("%w: binding.reflection_workers %d", ErrInvalid, c.Binding.ReflectionWorkers)
	}

	if c.Profiler.IntervalMS <= 0 {
		return fmt.Errorf("%w: profiler.interval_ms %d", ErrInvalid, c.Profiler.IntervalMS)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalid, s)
	}
	return l, nil
}

// NewLogger builds the logger described by the [log] table.
//
// Parameters:
//   - w: where records are written
//
// Returns:
//   - *slog.Logger: a text or JSON logger at the configured level
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
