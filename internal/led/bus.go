package led

import (
	"io"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Role names one of the four lines of the shift-register chain.
type Role int

const (
	Data Role = iota
	Clock
	Latch
	OutputEnable
)

func (r Role) String() string {
	switch r {
	case Data:
		return "data"
	case Clock:
		return "clock"
	case Latch:
		return "latch"
	case OutputEnable:
		return "oe"
	}
	return "unknown"
}

// PinMode is the direction a line is configured for.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// BitOrder is the order bits of each byte leave the data line.
type BitOrder int

const (
	MSBFirst BitOrder = iota
	LSBFirst
)

// Settings are the serial parameters of every transaction.
type Settings struct {
	Clock physic.Frequency
	Order BitOrder
	Mode  spi.Mode
}

// DefaultSettings is the bus setup the 74HC595 chain is wired for.
var DefaultSettings = Settings{
	Clock: 4 * physic.MegaHertz,
	Order: MSBFirst,
	Mode:  spi.Mode0,
}

// Bus is the hardware capability the chain driver needs. Implementations
// exist for periph.io, the GPIO character device and an in-memory capture.
type Bus interface {
	PinMode(r Role, m PinMode) error
	DigitalWrite(r Role, l gpio.Level) error
	BeginTransaction(s Settings) error
	// Write shifts p out on the data line inside a transaction.
	Write(p []byte) error
	EndTransaction() error
	io.Closer
}
