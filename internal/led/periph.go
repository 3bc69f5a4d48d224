package led

import (
	"errors"
	"fmt"
	"io"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

var (
	ErrUnsupportedRole = errors.New("led: role is driven by the SPI port")
	ErrSettingsChanged = errors.New("led: SPI settings cannot change after the first transaction")
	ErrNoTransaction   = errors.New("led: write outside of a transaction")
	ErrPinMismatch     = errors.New("led: SPI port pin does not match configuration")
)

// Line is an output the bus drives directly. gpio.PinOut satisfies it.
type Line interface {
	Out(l gpio.Level) error
}

// PeriphBus shifts data through a periph.io SPI port and toggles latch and
// output-enable on separate lines.
type PeriphBus struct {
	port      spi.PortCloser
	conn      spi.Conn
	connected Settings
	latch     Line
	oe        Line
	inTx      bool
	closers   []io.Closer
}

// NewPeriphBus wraps an already opened port. Data and clock belong to the
// port; latch and oe are driven through the given lines.
func NewPeriphBus(port spi.PortCloser, latch, oe Line) *PeriphBus {
	return &PeriphBus{port: port, latch: latch, oe: oe}
}

func (b *PeriphBus) String() string { return "periph(" + b.port.String() + ")" }

func (b *PeriphBus) line(r Role) (Line, error) {
	switch r {
	case Latch:
		return b.latch, nil
	case OutputEnable:
		return b.oe, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedRole, r)
}

// PinMode configures latch or oe as an output parked high. Data and clock
// are configured by the port itself.
func (b *PeriphBus) PinMode(r Role, m PinMode) error {
	if r == Data || r == Clock {
		return nil
	}
	l, err := b.line(r)
	if err != nil {
		return err
	}
	if m != Output {
		return fmt.Errorf("led: %s must be an output", r)
	}
	return l.Out(gpio.High)
}

func (b *PeriphBus) DigitalWrite(r Role, level gpio.Level) error {
	l, err := b.line(r)
	if err != nil {
		return err
	}
	return l.Out(level)
}

// BeginTransaction connects the port on first use. periph allows a single
// Connect per port, so later transactions must reuse the same settings.
func (b *PeriphBus) BeginTransaction(s Settings) error {
	if b.conn == nil {
		mode := s.Mode
		if s.Order == LSBFirst {
			mode |= spi.LSBFirst
		}
		c, err := b.port.Connect(s.Clock, mode, 8)
		if err != nil {
			return fmt.Errorf("led: spi connect: %w", err)
		}
		b.conn = c
		b.connected = s
	} else if s != b.connected {
		return ErrSettingsChanged
	}
	b.inTx = true
	return nil
}

func (b *PeriphBus) Write(p []byte) error {
	if !b.inTx {
		return ErrNoTransaction
	}
	return b.conn.Tx(p, nil)
}

func (b *PeriphBus) EndTransaction() error {
	b.inTx = false
	return nil
}

func (b *PeriphBus) Close() error {
	errs := []error{b.port.Close()}
	for _, c := range b.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// PeriphConfig names the port and pins for OpenPeriph. Data and Clock are
// optional; when set they are checked against the port's own pins.
type PeriphConfig struct {
	Port         string
	Data         string
	Clock        string
	Latch        string
	OutputEnable string
}

// OpenPeriph initializes the periph host drivers and opens the port and
// control pins named in cfg.
func OpenPeriph(cfg PeriphConfig) (*PeriphBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("led: host init: %w", err)
	}
	latch := gpioreg.ByName(cfg.Latch)
	if latch == nil {
		return nil, fmt.Errorf("led: latch pin %q not found", cfg.Latch)
	}
	oe := gpioreg.ByName(cfg.OutputEnable)
	if oe == nil {
		return nil, fmt.Errorf("led: output-enable pin %q not found", cfg.OutputEnable)
	}
	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("led: open spi port %q: %w", cfg.Port, err)
	}
	if err := checkPins(port, cfg); err != nil {
		_ = port.Close()
		return nil, err
	}
	return NewPeriphBus(port, latch, oe), nil
}

func checkPins(port spi.PortCloser, cfg PeriphConfig) error {
	pins, ok := port.(spi.Pins)
	if !ok {
		return nil
	}
	check := func(want string, got gpio.PinOut) error {
		if want == "" || got == nil || got == gpio.INVALID {
			return nil
		}
		if got.Name() != want {
			return fmt.Errorf("%w: want %s, port uses %s", ErrPinMismatch, want, got.Name())
		}
		return nil
	}
	if err := check(cfg.Clock, pins.CLK()); err != nil {
		return err
	}
	return check(cfg.Data, pins.MOSI())
}
