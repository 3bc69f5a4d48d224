package layout

import (
	"fmt"
	"time"

	"github.com/coreman2200/ledmatrix/internal/matrix"
	"github.com/coreman2200/ledmatrix/internal/text"
)

// DisplayMode selects which animator feeds the panel.
type DisplayMode string

const (
	TextMode  DisplayMode = "text"
	ImageMode DisplayMode = "image"
)

// TextLayout selects how the two text lines share the panel.
type TextLayout string

const (
	// Dual shows the top line in rows 0-7 and the bottom line in rows 8-15.
	Dual TextLayout = "dual"
	// SingleTop shows only the top line at full size.
	SingleTop TextLayout = "single_top"
	// SingleBottom shows only the bottom line at full size.
	SingleBottom TextLayout = "single_bottom"
	// Center shows only the top line at full size.
	Center TextLayout = "center"
)

func ParseDisplayMode(s string) (DisplayMode, error) {
	switch DisplayMode(s) {
	case TextMode, ImageMode:
		return DisplayMode(s), nil
	}
	return "", fmt.Errorf("layout: unknown display mode %q", s)
}

func ParseTextLayout(s string) (TextLayout, error) {
	switch TextLayout(s) {
	case Dual, SingleTop, SingleBottom, Center:
		return TextLayout(s), nil
	}
	return "", fmt.Errorf("layout: unknown text layout %q", s)
}

// Composer merges the two text lines into one canvas.
type Composer struct {
	Top    *text.Animator
	Bottom *text.Animator

	applied    TextLayout
	hasApplied bool
}

func NewComposer(top, bottom *text.Animator) *Composer {
	return &Composer{Top: top, Bottom: bottom}
}

// Compose advances both animators and returns the frame for l. A hidden
// line keeps running so its cursor and finished state stay current.
// Alignments are only pushed to the animators when l differs from the last
// layout composed, so steady-state calls keep the cursors running.
func (c *Composer) Compose(l TextLayout, now time.Duration) matrix.Canvas {
	if !c.hasApplied || l != c.applied {
		c.apply(l)
	}
	top := c.Top.Update(now)
	bottom := c.Bottom.Update(now)
	switch l {
	case SingleTop, Center:
		return top
	case SingleBottom:
		return bottom
	}
	top.Merge(bottom)
	return top
}

func (c *Composer) apply(l TextLayout) {
	switch l {
	case SingleTop, Center:
		c.Top.SetAlignment(text.Full)
		c.Bottom.SetAlignment(text.LowerHalf)
	case SingleBottom:
		c.Top.SetAlignment(text.UpperHalf)
		c.Bottom.SetAlignment(text.Full)
	default:
		c.Top.SetAlignment(text.UpperHalf)
		c.Bottom.SetAlignment(text.LowerHalf)
	}
	c.applied = l
	c.hasApplied = true
}
