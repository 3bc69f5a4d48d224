package fake

import (
	"errors"
	"sync"

	"periph.io/x/conn/v3/gpio"

	"github.com/coreman2200/ledmatrix/internal/led"
)

var (
	ErrNestedTransaction = errors.New("fake: transaction already open")
	ErrNoTransaction     = errors.New("fake: write outside of a transaction")
	ErrClosed            = errors.New("fake: bus closed")
)

// Bus is an in-memory led.Bus that models the shift-register chain bit by
// bit: every transmitted bit is shifted in, a falling latch edge starts a
// new word and a rising edge commits the shifted bits.
type Bus struct {
	// MaxHistory bounds the committed-word history; 0 keeps everything.
	MaxHistory int
	// OnLatch, when set, receives every committed word.
	OnLatch func(word uint32)

	mu           sync.Mutex
	modes        map[led.Role]led.PinMode
	levels       map[led.Role]gpio.Level
	settings     led.Settings
	inTx         bool
	transactions int
	shifted      uint32
	bitCount     int
	latched      []uint32
	closed       bool
}

func New() *Bus {
	return &Bus{
		modes:  map[led.Role]led.PinMode{},
		levels: map[led.Role]gpio.Level{},
	}
}

func (b *Bus) PinMode(r led.Role, m led.PinMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.modes[r] = m
	return nil
}

func (b *Bus) DigitalWrite(r led.Role, l gpio.Level) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	prev := b.levels[r]
	b.levels[r] = l
	var committed *uint32
	if r == led.Latch {
		switch {
		case prev == gpio.High && l == gpio.Low:
			b.bitCount = 0
		case prev == gpio.Low && l == gpio.High && b.bitCount > 0:
			w := b.shifted
			b.record(w)
			committed = &w
		}
	}
	hook := b.OnLatch
	b.mu.Unlock()

	if committed != nil && hook != nil {
		hook(*committed)
	}
	return nil
}

func (b *Bus) record(w uint32) {
	b.latched = append(b.latched, w)
	if b.MaxHistory > 0 && len(b.latched) > b.MaxHistory {
		b.latched = append(b.latched[:0], b.latched[len(b.latched)-b.MaxHistory:]...)
	}
}

func (b *Bus) BeginTransaction(s led.Settings) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.inTx {
		return ErrNestedTransaction
	}
	b.inTx = true
	b.settings = s
	b.transactions++
	return nil
}

func (b *Bus) Write(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inTx {
		return ErrNoTransaction
	}
	for _, v := range p {
		for i := 0; i < 8; i++ {
			shift := uint(7 - i)
			if b.settings.Order == led.LSBFirst {
				shift = uint(i)
			}
			b.shifted = b.shifted<<1 | uint32(v>>shift&1)
			b.bitCount++
		}
	}
	return nil
}

func (b *Bus) EndTransaction() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inTx = false
	return nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Latched returns every committed word, oldest first.
func (b *Bus) Latched() []uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint32(nil), b.latched...)
}

// LastLatched returns the most recently committed word.
func (b *Bus) LastLatched() (uint32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.latched) == 0 {
		return 0, false
	}
	return b.latched[len(b.latched)-1], true
}

// Shifted returns the register contents and the bits shifted since the last
// falling latch edge.
func (b *Bus) Shifted() (uint32, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shifted, b.bitCount
}

func (b *Bus) Level(r led.Role) gpio.Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.levels[r]
}

func (b *Bus) Mode(r led.Role) (led.PinMode, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.modes[r]
	return m, ok
}

func (b *Bus) Settings() led.Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings
}

func (b *Bus) Transactions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transactions
}

func (b *Bus) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// ClearHistory forgets committed words, keeping line levels.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latched = nil
}
