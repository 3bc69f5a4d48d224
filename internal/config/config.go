package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type SPI struct {
	Port    string `yaml:"port"`     // e.g. /dev/spidev0.0, "" picks the first
	SpeedHz int    `yaml:"speed_hz"` // e.g. 4000000
}

type Pins struct {
	Data         string `yaml:"data"`
	Clock        string `yaml:"clock"`
	Latch        string `yaml:"latch"`
	OutputEnable string `yaml:"output_enable"`
}

type Gpiocdev struct {
	Chip         string `yaml:"chip"`
	Latch        int    `yaml:"latch"`
	OutputEnable int    `yaml:"output_enable"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Display struct {
	Mode       string  `yaml:"mode"`   // text | image
	Layout     string  `yaml:"layout"` // dual | single_top | single_bottom | center
	Brightness float64 `yaml:"brightness"`
}

type Line struct {
	Text            string `yaml:"text"`
	Mode            string `yaml:"mode"` // hold | scroll
	FrameDurationMs int    `yaml:"frame_duration_ms"`
	Loop            bool   `yaml:"loop"`
}

type TextCfg struct {
	Top    Line `yaml:"top"`
	Bottom Line `yaml:"bottom"`
}

type Image struct {
	FrameDurationMs int      `yaml:"frame_duration_ms"`
	Loop            bool     `yaml:"loop"`
	Files           []string `yaml:"files,omitempty"`
	Threshold       int      `yaml:"threshold"`
	Invert          bool     `yaml:"invert"`
	Pattern         string   `yaml:"pattern,omitempty"`
}

type Config struct {
	Driver             string `yaml:"driver"` // "periph" | "gpiocdev" | "sim"
	RowPeriodUs        int    `yaml:"row_period_us"`
	ProducerIntervalMs int    `yaml:"producer_interval_ms"`

	SPI      SPI      `yaml:"spi"`
	Pins     Pins     `yaml:"pins"`
	Gpiocdev Gpiocdev `yaml:"gpiocdev,omitempty"`
	HTTP     HTTP     `yaml:"http"`

	Display Display `yaml:"display"`
	Text    TextCfg `yaml:"text"`
	Image   Image   `yaml:"image"`
}

// Default matches the reference wiring: SPI0 on the Pi header with latch on
// GPIO2 and output enable on GPIO0.
func Default() *Config {
	return &Config{
		Driver:             "sim",
		RowPeriodUs:        520,
		ProducerIntervalMs: 1,
		SPI:                SPI{SpeedHz: 4_000_000},
		Pins:               Pins{Latch: "GPIO2", OutputEnable: "GPIO0"},
		Gpiocdev:           Gpiocdev{Chip: "gpiochip0", Latch: 2, OutputEnable: 0},
		HTTP:               HTTP{Addr: ":8080"},
		Display:            Display{Mode: "text", Layout: "dual", Brightness: 50},
		Text: TextCfg{
			Top:    Line{Text: "Hello World  ", Mode: "scroll", FrameDurationMs: 50, Loop: true},
			Bottom: Line{Text: "Hello World  ", Mode: "scroll", FrameDurationMs: 50, Loop: true},
		},
		Image: Image{FrameDurationMs: 200, Loop: true, Threshold: 128},
	}
}

// Load reads path on top of Default, so a partial file keeps the defaults
// for everything it leaves out.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

var (
	ErrDriver     = errors.New("unknown driver")
	ErrRange      = errors.New("value out of range")
	ErrEnumerated = errors.New("unknown option")
)

func (c *Config) Validate() error {
	switch c.Driver {
	case "periph", "gpiocdev", "sim":
	default:
		return fmt.Errorf("%w %q", ErrDriver, c.Driver)
	}
	if c.RowPeriodUs <= 0 {
		return fmt.Errorf("row_period_us %d: %w", c.RowPeriodUs, ErrRange)
	}
	if c.ProducerIntervalMs <= 0 {
		return fmt.Errorf("producer_interval_ms %d: %w", c.ProducerIntervalMs, ErrRange)
	}
	if c.Display.Brightness < 0 || c.Display.Brightness > 100 {
		return fmt.Errorf("display.brightness %g: %w", c.Display.Brightness, ErrRange)
	}
	if c.Image.Threshold < 0 || c.Image.Threshold > 255 {
		return fmt.Errorf("image.threshold %d: %w", c.Image.Threshold, ErrRange)
	}
	if err := oneOf("display.mode", c.Display.Mode, "text", "image"); err != nil {
		return err
	}
	if err := oneOf("display.layout", c.Display.Layout, "dual", "single_top", "single_bottom", "center"); err != nil {
		return err
	}
	for name, l := range map[string]Line{"text.top": c.Text.Top, "text.bottom": c.Text.Bottom} {
		if err := oneOf(name+".mode", l.Mode, "hold", "scroll"); err != nil {
			return err
		}
	}
	return nil
}

func oneOf(field, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s %q: %w", field, v, ErrEnumerated)
}
