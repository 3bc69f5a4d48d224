package text

import (
	"fmt"
	"time"

	"github.com/coreman2200/ledmatrix/internal/glyph"
	"github.com/coreman2200/ledmatrix/internal/matrix"
)

// Mode selects how a message is animated.
type Mode string

const (
	Hold   Mode = "hold"
	Scroll Mode = "scroll"
)

// Alignment selects glyph scale and vertical placement.
type Alignment string

const (
	Full      Alignment = "full"
	UpperHalf Alignment = "upper"
	LowerHalf Alignment = "lower"
)

const (
	DefaultText           = "Hello World  "
	DefaultScrollDuration = 50 * time.Millisecond
	DefaultHoldDuration   = 500 * time.Millisecond
)

// DefaultDuration is the frame duration a line gets when switched to m.
func DefaultDuration(m Mode) time.Duration {
	if m == Hold {
		return DefaultHoldDuration
	}
	return DefaultScrollDuration
}

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Hold, Scroll:
		return Mode(s), nil
	}
	return "", fmt.Errorf("text: unknown mode %q", s)
}

func ParseAlignment(s string) (Alignment, error) {
	switch Alignment(s) {
	case Full, UpperHalf, LowerHalf:
		return Alignment(s), nil
	}
	return "", fmt.Errorf("text: unknown alignment %q", s)
}

// Animator turns one line of text into a stream of canvases. It is not safe
// for concurrent use; the producer goroutine owns it.
type Animator struct {
	text     string
	mode     Mode
	loop     bool
	duration time.Duration
	align    Alignment

	// cursor
	displayed int // -1 when nothing is shown
	next      int
	offset    int // scroll offset in pixels
	last      time.Duration

	canvas matrix.Canvas
}

// New returns an animator scrolling DefaultText in a loop at full size.
func New() *Animator {
	a := &Animator{
		text:     DefaultText,
		mode:     Scroll,
		loop:     true,
		duration: DefaultScrollDuration,
		align:    Full,
	}
	a.Reset()
	return a
}

func (a *Animator) Text() string                 { return a.text }
func (a *Animator) Mode() Mode                   { return a.mode }
func (a *Animator) Looping() bool                { return a.loop }
func (a *Animator) FrameDuration() time.Duration { return a.duration }
func (a *Animator) Alignment() Alignment         { return a.align }

// Canvas returns the most recently drawn frame.
func (a *Animator) Canvas() matrix.Canvas { return a.canvas }

func (a *Animator) SetText(s string) {
	a.text = s
	a.Reset()
}

func (a *Animator) SetMode(m Mode) {
	if m == a.mode {
		return
	}
	a.mode = m
	a.Reset()
}

// SetFrameDuration sets the time between animation steps. Zero advances on
// every update; negative values are treated as zero.
func (a *Animator) SetFrameDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	a.duration = d
}

func (a *Animator) SetLooping(loop bool) {
	if loop == a.loop {
		return
	}
	n := len(a.text)
	atEnd := a.loop && n > 0 && a.displayed == n-1
	a.loop = loop
	if atEnd {
		a.Reset()
		return
	}
	if loop && a.next >= n {
		a.next = 0
	}
}

func (a *Animator) SetAlignment(al Alignment) {
	if al == a.align {
		return
	}
	a.align = al
	a.Reset()
}

// Reset rewinds the cursor to the start of the message and blanks the canvas.
func (a *Animator) Reset() {
	a.displayed = -1
	a.next = 0
	a.offset = 0
	a.last = 0
	a.canvas.Clear()
}

// CurrentChar returns the character on display, or 0 when none is.
func (a *Animator) CurrentChar() byte {
	if a.displayed < 0 || a.displayed >= len(a.text) {
		return 0
	}
	return a.text[a.displayed]
}

// Finished reports whether a non-looping animation has played out.
func (a *Animator) Finished() bool {
	n := len(a.text)
	if n == 0 {
		return !a.loop
	}
	if a.loop {
		return false
	}
	if a.mode == Hold {
		return a.displayed == n-1 && a.next == n
	}
	return a.displayed == -1 && a.next >= n
}

// Update advances the animation to time now and returns the frame to show.
// now is measured from any fixed origin; only differences matter.
func (a *Animator) Update(now time.Duration) matrix.Canvas {
	if len(a.text) == 0 {
		a.Reset()
		return a.canvas
	}
	if a.mode == Hold {
		a.updateHold(now)
	} else {
		a.updateScroll(now)
	}
	return a.canvas
}

func (a *Animator) due(now time.Duration) bool {
	return a.duration == 0 || now-a.last >= a.duration
}

// wrap maps an index one past a glyph onto the next cursor position.
func (a *Animator) wrap(i int) int {
	if i < len(a.text) {
		return i
	}
	if a.loop {
		return 0
	}
	return len(a.text)
}

func (a *Animator) updateHold(now time.Duration) {
	n := len(a.text)
	if !a.loop && a.displayed >= 0 && a.next >= n {
		return
	}
	idx := 0
	if a.displayed >= 0 {
		if !a.due(now) {
			return
		}
		idx = a.next
	}
	a.canvas.Clear()
	a.drawGlyph(a.text[idx], (matrix.Size-a.glyphWidth())/2)
	a.displayed = idx
	a.next = a.wrap(idx + 1)
	a.last = now
}

func (a *Animator) updateScroll(now time.Duration) {
	n := len(a.text)
	if !a.loop && a.displayed == -1 && a.next >= n {
		return
	}
	if a.displayed == -1 {
		a.displayed = 0
		a.next = a.wrap(1)
		a.offset = 0
		a.last = now
		a.drawScroll()
		return
	}
	if !a.due(now) {
		return
	}
	a.last = now
	a.offset++
	if a.offset >= a.glyphWidth() {
		a.offset = 0
		if a.next >= n {
			// one blank frame marks the end of a non-looping scroll
			a.displayed = -1
			a.next = n
			a.canvas.Clear()
			return
		}
		a.displayed = a.next
		a.next = a.wrap(a.displayed + 1)
	}
	a.drawScroll()
}

func (a *Animator) drawScroll() {
	a.canvas.Clear()
	n := len(a.text)
	idx := a.displayed
	for x := -a.offset; x < matrix.Size; x += a.glyphWidth() {
		if idx < n {
			a.drawGlyph(a.text[idx], x)
		}
		idx = a.wrap(idx + 1)
	}
}

func (a *Animator) scale() int {
	if a.align == Full {
		return 2
	}
	return 1
}

func (a *Animator) glyphWidth() int { return glyph.Width * a.scale() }

func (a *Animator) top() int {
	if a.align == LowerHalf {
		return matrix.Size / 2
	}
	return 0
}

func (a *Animator) drawGlyph(c byte, x0 int) {
	g := glyph.For(c)
	s := a.scale()
	y0 := a.top()
	for row := 0; row < glyph.Height; row++ {
		for col := 0; col < glyph.Width; col++ {
			if !g.On(col, row) {
				continue
			}
			for dy := 0; dy < s; dy++ {
				for dx := 0; dx < s; dx++ {
					a.canvas.SetPixel(x0+col*s+dx, y0+row*s+dy, true)
				}
			}
		}
	}
}
