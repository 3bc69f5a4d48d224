package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "GPIO2", c.Pins.Latch)
	assert.Equal(t, "GPIO0", c.Pins.OutputEnable)
	assert.Equal(t, 4_000_000, c.SPI.SpeedHz)
	assert.Equal(t, 50.0, c.Display.Brightness)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Driver = "periph"
	c.Text.Top.Text = "TOP"
	c.Image.Files = []string{"a.png", "b.gif"}
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("display:\n  layout: center\n  mode: text\n  brightness: 10\n"), 0644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "center", c.Display.Layout)
	assert.Equal(t, 10.0, c.Display.Brightness)
	assert.Equal(t, 520, c.RowPeriodUs)
	assert.Equal(t, "scroll", c.Text.Top.Mode)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"driver", func(c *Config) { c.Driver = "pwm" }, ErrDriver},
		{"row period", func(c *Config) { c.RowPeriodUs = 0 }, ErrRange},
		{"interval", func(c *Config) { c.ProducerIntervalMs = -1 }, ErrRange},
		{"brightness", func(c *Config) { c.Display.Brightness = 101 }, ErrRange},
		{"threshold", func(c *Config) { c.Image.Threshold = 300 }, ErrRange},
		{"mode", func(c *Config) { c.Display.Mode = "video" }, ErrEnumerated},
		{"layout", func(c *Config) { c.Display.Layout = "diagonal" }, ErrEnumerated},
		{"line mode", func(c *Config) { c.Text.Bottom.Mode = "blink" }, ErrEnumerated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			assert.ErrorIs(t, c.Validate(), tc.want)
		})
	}
}
