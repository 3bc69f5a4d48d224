package text

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/ledmatrix/internal/matrix"
)

const ms = time.Millisecond

func newAnimator(mode Mode, d time.Duration, loop bool, msg string) *Animator {
	a := New()
	a.SetMode(mode)
	a.SetFrameDuration(d)
	a.SetLooping(loop)
	a.SetText(msg)
	return a
}

func TestDefaults(t *testing.T) {
	a := New()
	assert.Equal(t, DefaultText, a.Text())
	assert.Equal(t, Scroll, a.Mode())
	assert.True(t, a.Looping())
	assert.Equal(t, DefaultScrollDuration, a.FrameDuration())
	assert.Equal(t, Full, a.Alignment())
	assert.Zero(t, a.CurrentChar())
	assert.False(t, a.Finished())
}

func TestHoldSequence(t *testing.T) {
	a := newAnimator(Hold, 10*ms, false, "A ")

	c := a.Update(0)
	assert.Equal(t, byte('A'), a.CurrentChar())
	assert.Greater(t, c.Count(), 0)
	assert.False(t, a.Finished())

	c2 := a.Update(5 * ms)
	assert.Equal(t, byte('A'), a.CurrentChar())
	assert.True(t, c.Equal(c2))

	c3 := a.Update(15 * ms)
	assert.Equal(t, byte(' '), a.CurrentChar())
	assert.Zero(t, c3.Count())
	assert.True(t, a.Finished())

	// frozen once finished
	a.Update(100 * ms)
	assert.Equal(t, byte(' '), a.CurrentChar())
	assert.True(t, a.Finished())
}

func TestHoldLoops(t *testing.T) {
	a := newAnimator(Hold, 10*ms, true, "AB")
	var got []byte
	for _, now := range []time.Duration{0, 15 * ms, 30 * ms} {
		a.Update(now)
		got = append(got, a.CurrentChar())
		assert.False(t, a.Finished())
	}
	assert.Equal(t, []byte("ABA"), got)
}

func TestHoldZeroDurationAdvancesEveryCall(t *testing.T) {
	a := newAnimator(Hold, 0, true, "XYZ")
	var got []byte
	for i := 0; i < 5; i++ {
		a.Update(0)
		got = append(got, a.CurrentChar())
	}
	assert.Equal(t, []byte("XYZXY"), got)
}

func TestHoldFullGlyphFillsPanel(t *testing.T) {
	a := newAnimator(Hold, 10*ms, true, "A")
	c := a.Update(0)
	// 'A' top row 0x0C doubled: columns 4..7 in rows 0 and 1
	assert.Equal(t, uint16(0x0F00), c.Row(0))
	assert.Equal(t, uint16(0x0F00), c.Row(1))
}

func TestScrollFinishesBlank(t *testing.T) {
	a := newAnimator(Scroll, 0, false, "A")

	c := a.Update(0)
	assert.Equal(t, byte('A'), a.CurrentChar())
	assert.Greater(t, c.Count(), 0)

	for step := 1; step <= 16; step++ {
		c = a.Update(time.Duration(step) * ms)
	}
	assert.Zero(t, c.Count())
	assert.True(t, a.Finished())
	assert.Zero(t, a.CurrentChar())

	c = a.Update(20 * ms)
	assert.Zero(t, c.Count())
}

func TestScrollLoops(t *testing.T) {
	a := newAnimator(Scroll, 0, true, "AB")
	a.Update(0)
	assert.Equal(t, byte('A'), a.CurrentChar())
	for step := 1; step <= 40; step++ {
		a.Update(time.Duration(step) * ms)
	}
	assert.False(t, a.Finished())
	assert.NotZero(t, a.CurrentChar())
}

func TestScrollShiftsOneColumnPerTick(t *testing.T) {
	a := newAnimator(Scroll, 10*ms, true, "A")
	c0 := a.Update(0)
	c1 := a.Update(5 * ms)
	assert.True(t, c0.Equal(c1), "no step before the frame duration")

	c2 := a.Update(10 * ms)
	for y := 0; y < matrix.Size; y++ {
		// looping a single glyph: the row rotates left by one column
		r := c0.Row(y)
		assert.Equal(t, r<<1|r>>15, c2.Row(y), "row %d", y)
	}
}

func TestScrollHalfAlignmentUsesEightPixelGlyphs(t *testing.T) {
	a := newAnimator(Scroll, 0, false, "AB")
	a.SetAlignment(UpperHalf)

	c := a.Update(0)
	for y := 8; y < matrix.Size; y++ {
		assert.Zero(t, c.Row(y), "lower half must stay dark")
	}
	// 'A' occupies columns 0..7, 'B' columns 8..15
	assert.Equal(t, uint16(0x30<<8|0xFC), c.Row(0))

	for step := 1; step <= 8; step++ {
		a.Update(time.Duration(step) * ms)
	}
	assert.Equal(t, byte('B'), a.CurrentChar())
	for step := 9; step <= 16; step++ {
		a.Update(time.Duration(step) * ms)
	}
	assert.True(t, a.Finished())
}

func TestLowerHalfPlacement(t *testing.T) {
	a := newAnimator(Hold, 0, true, "A")
	a.SetAlignment(LowerHalf)
	c := a.Update(0)
	for y := 0; y < 8; y++ {
		assert.Zero(t, c.Row(y))
	}
	// centered 8px glyph: 'A' top row 0x0C lands on columns 6 and 7
	assert.Equal(t, uint16(0x0300), c.Row(8))
}

func TestSettersReset(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Animator)
	}{
		{"text", func(a *Animator) { a.SetText("CD") }},
		{"mode", func(a *Animator) { a.SetMode(Scroll) }},
		{"alignment", func(a *Animator) { a.SetAlignment(UpperHalf) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newAnimator(Hold, 0, true, "AB")
			a.Update(0)
			a.Update(0)
			require.Equal(t, byte('B'), a.CurrentChar())
			tc.mutate(a)
			assert.Zero(t, a.CurrentChar())
			c := a.Canvas()
			assert.Zero(t, c.Count())
		})
	}
}

func TestSameModeKeepsCursor(t *testing.T) {
	a := newAnimator(Hold, 0, true, "AB")
	a.Update(0)
	a.SetMode(Hold)
	a.SetAlignment(Full)
	assert.Equal(t, byte('A'), a.CurrentChar())
}

func TestLoopingToggle(t *testing.T) {
	a := newAnimator(Hold, 0, false, "AB")
	a.Update(0)
	a.Update(0)
	require.True(t, a.Finished())

	a.SetLooping(true)
	a.Update(0)
	assert.Equal(t, byte('A'), a.CurrentChar())

	a.Update(0)
	require.Equal(t, byte('B'), a.CurrentChar())
	// leaving loop mode while parked on the last glyph starts over
	a.SetLooping(false)
	assert.Zero(t, a.CurrentChar())
	a.Update(0)
	assert.Equal(t, byte('A'), a.CurrentChar())
}

func TestNegativeDurationClamps(t *testing.T) {
	a := New()
	a.SetFrameDuration(-5 * ms)
	assert.Zero(t, a.FrameDuration())
}

func TestEmptyMessage(t *testing.T) {
	a := newAnimator(Scroll, 0, true, "A")
	a.Update(0)
	a.SetText("")
	c := a.Update(1 * ms)
	assert.Zero(t, c.Count())
	assert.Zero(t, a.CurrentChar())
}

func TestParse(t *testing.T) {
	m, err := ParseMode("hold")
	require.NoError(t, err)
	assert.Equal(t, Hold, m)
	_, err = ParseMode("blink")
	assert.Error(t, err)

	al, err := ParseAlignment("lower")
	require.NoError(t, err)
	assert.Equal(t, LowerHalf, al)
	_, err = ParseAlignment("middle")
	assert.Error(t, err)

	assert.Equal(t, DefaultHoldDuration, DefaultDuration(Hold))
	assert.Equal(t, DefaultScrollDuration, DefaultDuration(Scroll))
}
