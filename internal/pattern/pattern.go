package pattern

import (
	"errors"
	"fmt"

	"github.com/coreman2200/ledmatrix/internal/matrix"
)

type Kind string

const (
	None         Kind = ""
	RunningLight Kind = "running_light"
	Rows         Kind = "rows"
	Columns      Kind = "columns"
	Full         Kind = "full"
	Checker      Kind = "checker"
)

var ErrUnknown = errors.New("pattern: unknown kind")

// Kinds lists every generator in presentation order.
func Kinds() []Kind { return []Kind{RunningLight, Rows, Columns, Full, Checker} }

func Parse(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return None, fmt.Errorf("%w %q", ErrUnknown, s)
}

// Runner produces the frames of one pattern one at a time.
type Runner struct {
	kind Kind
	step int
}

func NewRunner(k Kind) *Runner { return &Runner{kind: k} }
func (r *Runner) Kind() Kind   { return r.kind }

// Len is the number of frames the pattern produces.
func (r *Runner) Len() int {
	switch r.kind {
	case RunningLight:
		return matrix.Size * matrix.Size
	case Rows, Columns:
		return matrix.Size
	case Full:
		return 1
	case Checker:
		return 2
	}
	return 0
}

// Step fills img with the next frame; returns false when complete.
func (r *Runner) Step(img *matrix.Image) bool {
	if r.step >= r.Len() {
		return false
	}
	c := img.Canvas()
	c.Clear()
	switch r.kind {
	case RunningLight:
		c.SetPixel(r.step%matrix.Size, r.step/matrix.Size, true)
	case Rows:
		c.SetRow(r.step, 0xFFFF)
	case Columns:
		for y := 0; y < matrix.Size; y++ {
			c.SetPixel(r.step, y, true)
		}
	case Full:
		for y := 0; y < matrix.Size; y++ {
			c.SetRow(y, 0xFFFF)
		}
	case Checker:
		even, odd := uint16(0xAAAA), uint16(0x5555)
		if r.step == 1 {
			even, odd = odd, even
		}
		for y := 0; y < matrix.Size; y++ {
			if y%2 == 0 {
				c.SetRow(y, even)
			} else {
				c.SetRow(y, odd)
			}
		}
	}
	*img = matrix.Snapshot(c)
	r.step++
	return true
}

// Frames collects every frame of k.
func Frames(k Kind) ([]matrix.Image, error) {
	r := NewRunner(k)
	if r.Len() == 0 {
		return nil, fmt.Errorf("%w %q", ErrUnknown, k)
	}
	out := make([]matrix.Image, 0, r.Len())
	var img matrix.Image
	for r.Step(&img) {
		out = append(out, img)
	}
	return out, nil
}
