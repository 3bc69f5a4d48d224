package preview

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/ledmatrix/internal/led"
	"github.com/coreman2200/ledmatrix/internal/matrix"
)

func TestDecode(t *testing.T) {
	var c matrix.Canvas
	c.SetPixel(3, 7, true)
	row, cols, ok := Decode(c.RowWord(7))
	require.True(t, ok)
	assert.Equal(t, 7, row)
	assert.Equal(t, c.Row(7), cols)

	_, _, ok = Decode(matrix.BlankWord)
	assert.False(t, ok)
}

func TestPreviewReconstructsFrame(t *testing.T) {
	var out bytes.Buffer
	b := New(&out, time.Second)
	clock := time.Unix(100, 0)
	b.now = func() time.Time { return clock }

	chain := led.NewChain(b, led.DefaultSettings)
	require.NoError(t, chain.Begin())

	var c matrix.Canvas
	c.SetPixel(0, 0, true)
	c.SetPixel(15, 15, true)
	c.SetRow(8, 0xF00F)
	pass := func() {
		for y := 0; y < matrix.Size; y++ {
			require.NoError(t, chain.WriteWord(c.RowWord(y)))
			require.NoError(t, chain.WriteWord(matrix.BlankWord))
		}
	}
	pass()
	assert.Zero(t, b.Frames(), "a pass is flushed when the next one starts")
	pass()
	assert.Equal(t, uint64(1), b.Frames())
	assert.True(t, c.Equal(b.Snapshot()))
	assert.True(t, strings.HasPrefix(out.String(), "frame 1\n"))
	assert.Contains(t, out.String(), c.String())

	// throttled: the second flush lands inside the interval
	pass()
	assert.Equal(t, uint64(2), b.Frames())
	assert.Equal(t, 1, strings.Count(out.String(), "frame "))

	clock = clock.Add(2 * time.Second)
	pass()
	assert.Equal(t, 2, strings.Count(out.String(), "frame "))
}

func TestPreviewKeepsBoundedHistory(t *testing.T) {
	b := New(&bytes.Buffer{}, time.Hour)
	chain := led.NewChain(b, led.DefaultSettings)
	require.NoError(t, chain.Begin())
	for i := 0; i < 500; i++ {
		require.NoError(t, chain.WriteWord(matrix.BlankWord))
	}
	assert.LessOrEqual(t, len(b.Latched()), 64)
}
