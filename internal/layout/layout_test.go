package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/ledmatrix/internal/text"
)

func holdLine(msg string) *text.Animator {
	a := text.New()
	a.SetMode(text.Hold)
	a.SetFrameDuration(0)
	a.SetText(msg)
	return a
}

func TestDualMergesHalves(t *testing.T) {
	c := NewComposer(holdLine("A"), holdLine("B"))
	out := c.Compose(Dual, 0)

	assert.Equal(t, text.UpperHalf, c.Top.Alignment())
	assert.Equal(t, text.LowerHalf, c.Bottom.Alignment())

	top := c.Top.Canvas()
	bottom := c.Bottom.Canvas()
	assert.Greater(t, top.Count(), 0)
	assert.Greater(t, bottom.Count(), 0)
	assert.Equal(t, top.Count()+bottom.Count(), out.Count())
	for y := 0; y < 8; y++ {
		assert.Equal(t, top.Row(y), out.Row(y))
		assert.Zero(t, bottom.Row(y))
	}
	for y := 8; y < 16; y++ {
		assert.Equal(t, bottom.Row(y), out.Row(y))
	}
}

func TestSingleLayouts(t *testing.T) {
	tests := []struct {
		layout   TextLayout
		wantTop  bool
		fullLine func(c *Composer) *text.Animator
	}{
		{SingleTop, true, func(c *Composer) *text.Animator { return c.Top }},
		{Center, true, func(c *Composer) *text.Animator { return c.Top }},
		{SingleBottom, false, func(c *Composer) *text.Animator { return c.Bottom }},
	}
	for _, tc := range tests {
		t.Run(string(tc.layout), func(t *testing.T) {
			c := NewComposer(holdLine("A"), holdLine("B"))
			out := c.Compose(tc.layout, 0)
			line := tc.fullLine(c)
			assert.Equal(t, text.Full, line.Alignment())
			lc := line.Canvas()
			assert.True(t, out.Equal(lc))
			assert.Equal(t, byte('A'), c.Top.CurrentChar(), "hidden lines keep running")
			assert.Equal(t, byte('B'), c.Bottom.CurrentChar(), "hidden lines keep running")
			if tc.wantTop {
				assert.Equal(t, text.LowerHalf, c.Bottom.Alignment())
			} else {
				assert.Equal(t, text.UpperHalf, c.Top.Alignment())
			}
		})
	}
}

func TestHiddenLineFinishes(t *testing.T) {
	bottom := holdLine("AB")
	bottom.SetLooping(false)
	c := NewComposer(holdLine("X"), bottom)
	for i := 0; i < 3; i++ {
		out := c.Compose(SingleTop, 0)
		top := c.Top.Canvas()
		assert.True(t, out.Equal(top))
	}
	assert.Equal(t, byte('B'), c.Bottom.CurrentChar())
	assert.True(t, c.Bottom.Finished())
}

func TestLayoutAppliedOnlyOnChange(t *testing.T) {
	c := NewComposer(holdLine("ABC"), holdLine("DEF"))
	c.Compose(Dual, 0)
	c.Compose(Dual, 0)
	require.Equal(t, byte('B'), c.Top.CurrentChar())

	c.Compose(Dual, 0)
	assert.Equal(t, byte('C'), c.Top.CurrentChar())
	assert.Equal(t, byte('F'), c.Bottom.CurrentChar())

	c.Compose(SingleTop, 0)
	assert.Equal(t, byte('A'), c.Top.CurrentChar(), "alignment change restarts the line")
}

func TestParse(t *testing.T) {
	m, err := ParseDisplayMode("image")
	require.NoError(t, err)
	assert.Equal(t, ImageMode, m)
	_, err = ParseDisplayMode("video")
	assert.Error(t, err)

	l, err := ParseTextLayout("single_bottom")
	require.NoError(t, err)
	assert.Equal(t, SingleBottom, l)
	_, err = ParseTextLayout("triple")
	assert.Error(t, err)
}
