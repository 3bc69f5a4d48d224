package preview

import (
	"fmt"
	"io"
	"math/bits"
	"sync"
	"time"

	"github.com/coreman2200/ledmatrix/internal/driver/fake"
	"github.com/coreman2200/ledmatrix/internal/matrix"
)

// Bus is a simulated chain: it decodes every committed word back into panel
// rows and prints the reconstructed frame to a writer, at most once per
// throttle interval.
type Bus struct {
	*fake.Bus

	mu       sync.Mutex
	w        io.Writer
	throttle time.Duration
	lastEmit time.Time
	now      func() time.Time
	frame    matrix.Canvas
	lit      uint16 // rows that carried pixels in the current pass
	frames   uint64
}

// New prints at most one frame per throttle to w.
func New(w io.Writer, throttle time.Duration) *Bus {
	b := &Bus{
		Bus:      fake.New(),
		w:        w,
		throttle: throttle,
		now:      time.Now,
	}
	b.Bus.MaxHistory = 64
	b.Bus.OnLatch = b.commit
	return b
}

// Decode splits a chain word into the selected row and its column bits. ok
// is false for a word that selects no row.
func Decode(word uint32) (row int, cols uint16, ok bool) {
	inv := ^word
	sel := uint16(inv >> 16)
	if sel == 0 {
		return 0, 0, false
	}
	return matrix.Size - 1 - bits.TrailingZeros16(sel), uint16(inv), true
}

func (b *Bus) commit(word uint32) {
	row, cols, ok := Decode(word)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if row == 0 && b.lit != 0 {
		b.flush()
	}
	b.frame.SetRow(row, cols)
	b.lit |= 1 << uint(row)
}

func (b *Bus) flush() {
	b.frames++
	for y := 0; y < matrix.Size; y++ {
		if b.lit&(1<<uint(y)) == 0 {
			b.frame.SetRow(y, 0)
		}
	}
	b.lit = 0
	now := b.now()
	if !b.lastEmit.IsZero() && now.Sub(b.lastEmit) < b.throttle {
		return
	}
	b.lastEmit = now
	fmt.Fprintf(b.w, "frame %d\n%s", b.frames, b.frame.String())
}

// Frames counts reconstructed passes.
func (b *Bus) Frames() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// Snapshot returns the rows decoded so far.
func (b *Bus) Snapshot() matrix.Canvas {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame
}
