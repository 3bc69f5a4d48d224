//go:build linux

package led

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// GpiocdevConfig selects character-device lines for latch and oe. Data and
// clock still go through the SPI port.
type GpiocdevConfig struct {
	Chip         string
	Latch        int
	OutputEnable int
	SPIPort      string
}

type cdevLine struct {
	l *gpiocdev.Line
}

func (c cdevLine) Out(level gpio.Level) error {
	v := 0
	if level {
		v = 1
	}
	return c.l.SetValue(v)
}

// OpenGpiocdev requests the control lines from the GPIO character device
// and pairs them with the SPI port. Both lines start high: latch idle and
// outputs disabled.
func OpenGpiocdev(cfg GpiocdevConfig) (*PeriphBus, error) {
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("led: host init: %w", err)
	}
	latch, err := gpiocdev.RequestLine(cfg.Chip, cfg.Latch,
		gpiocdev.AsOutput(1), gpiocdev.WithConsumer("ledmatrix-latch"))
	if err != nil {
		return nil, fmt.Errorf("led: request latch line %s:%d: %w", cfg.Chip, cfg.Latch, err)
	}
	oe, err := gpiocdev.RequestLine(cfg.Chip, cfg.OutputEnable,
		gpiocdev.AsOutput(1), gpiocdev.WithConsumer("ledmatrix-oe"))
	if err != nil {
		_ = latch.Close()
		return nil, fmt.Errorf("led: request oe line %s:%d: %w", cfg.Chip, cfg.OutputEnable, err)
	}
	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		_ = latch.Close()
		_ = oe.Close()
		return nil, fmt.Errorf("led: open spi port %q: %w", cfg.SPIPort, err)
	}
	b := NewPeriphBus(port, cdevLine{latch}, cdevLine{oe})
	b.closers = append(b.closers, latch, oe)
	return b, nil
}
