package led

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// blankWord deselects all rows and darkens all columns.
const blankWord = ^uint32(0)

var ErrNotInitialized = errors.New("led: chain not initialized, call Begin first")

// Chain drives the two cascaded 16-bit shift registers: rows in the high
// half-word, columns in the low half-word, both active-low.
type Chain struct {
	mu          sync.Mutex
	bus         Bus
	settings    Settings
	initialized bool
	buf         [4]byte
}

// NewChain binds a chain to bus. The settings are fixed for its lifetime.
func NewChain(bus Bus, s Settings) *Chain {
	return &Chain{bus: bus, settings: s}
}

func (c *Chain) Settings() Settings { return c.settings }

// Initialized reports whether Begin has completed.
func (c *Chain) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Begin configures the control lines and shifts in the blank word before
// the outputs are enabled, so the panel never flashes at power-up.
func (c *Chain) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}
	steps := []struct {
		what string
		fn   func() error
	}{
		{"latch mode", func() error { return c.bus.PinMode(Latch, Output) }},
		{"oe mode", func() error { return c.bus.PinMode(OutputEnable, Output) }},
		{"disable output", func() error { return c.bus.DigitalWrite(OutputEnable, gpio.High) }},
		{"latch idle", func() error { return c.bus.DigitalWrite(Latch, gpio.High) }},
		{"preload", func() error { return c.writeWord(blankWord) }},
		{"enable output", func() error { return c.bus.DigitalWrite(OutputEnable, gpio.Low) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("led: begin: %s: %w", s.what, err)
		}
	}
	c.initialized = true
	return nil
}

// EnableOutput drives the active-low output-enable line. It works before
// Begin so the outputs can be held off early.
func (c *Chain) EnableOutput(enable bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bus.DigitalWrite(OutputEnable, gpio.Level(!enable))
}

// WriteWord shifts word into the chain and commits it on the latch's rising
// edge.
func (c *Chain) WriteWord(word uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return ErrNotInitialized
	}
	return c.writeWord(word)
}

func (c *Chain) writeWord(word uint32) error {
	if c.settings.Order == LSBFirst {
		binary.LittleEndian.PutUint32(c.buf[:], word)
	} else {
		binary.BigEndian.PutUint32(c.buf[:], word)
	}
	if err := c.bus.DigitalWrite(Latch, gpio.Low); err != nil {
		return err
	}
	if err := c.bus.BeginTransaction(c.settings); err != nil {
		return err
	}
	werr := c.bus.Write(c.buf[:])
	if err := c.bus.EndTransaction(); err != nil && werr == nil {
		werr = err
	}
	if werr != nil {
		return werr
	}
	return c.bus.DigitalWrite(Latch, gpio.High)
}

// Close blanks the panel, disables the outputs and releases the bus.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	if c.initialized {
		errs = append(errs, c.writeWord(blankWord))
		errs = append(errs, c.bus.DigitalWrite(OutputEnable, gpio.High))
		c.initialized = false
	}
	errs = append(errs, c.bus.Close())
	return errors.Join(errs...)
}
