package config

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, PresentVSync, c.Renderer.PresentMode)
	assert.Equal(t, SlotGapRepeatPrevious, c.Binding.SlotGap)
	assert.True(t, c.Window.CloseOnEscape)
}

func TestDecodeOverlaysDefaults(t *testing.T) {
	c, err := Decode(strings.NewReader(`
[window]
title = "quad"
width = 800

[renderer]
msaa = 1
present_mode = "uncapped"

[binding]
slot_gap = "unbound"
reflection_workers = 2

[log]
level = "debug"
`))
	require.NoError(t, err)
	assert.Equal(t, "quad", c.Window.Title)
	assert.Equal(t, 800, c.Window.Width)
	assert.Equal(t, 720, c.Window.Height, "absent keys keep defaults")
	assert.Equal(t, uint32(1), c.Renderer.MSAA)
	assert.Equal(t, PresentUncapped, c.Renderer.PresentMode)
	assert.Equal(t, SlotGapUnbound, c.Binding.SlotGap)
	assert.Equal(t, 2, c.Binding.ReflectionWorkers)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown key", "[window]\ncolour = 3\n"},
		{"bad msaa", "[renderer]\nmsaa = 3\n"},
		{"bad present mode", "[renderer]\npresent_mode = \"mailbox\"\n"},
		{"bad slot gap", "[binding]\nslot_gap = \"skip\"\n"},
		{"bad level", "[log]\nlevel = \"loud\"\n"},
		{"bad format", "[log]\nformat = \"xml\"\n"},
		{"zero width", "[window]\nwidth = 0\n"},
		{"min over max", "[window]\nmin_width = 2000\n"},
		{"zero interval", "[profiler]\ninterval_ms = 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.src))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestDecodeSyntaxError(t *testing.T) {
	_, err := Decode(strings.NewReader("[window\n"))
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxy.toml")
	c := Default()
	c.Window.Title = "saved"
	c.Profiler.Enabled = true
	require.NoError(t, c.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	c := Default()
	c.Log.Level = "warn"
	c.Log.Format = "json"
	l := c.NewLogger(&buf)

	l.Info("dropped")
	l.Warn("kept", slog.Int("n", 1))
	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"n":1`)
}
