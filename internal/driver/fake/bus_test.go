package fake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"

	"github.com/coreman2200/ledmatrix/internal/led"
)

func shift(t *testing.T, b *Bus, p ...byte) {
	t.Helper()
	require.NoError(t, b.BeginTransaction(led.DefaultSettings))
	require.NoError(t, b.Write(p))
	require.NoError(t, b.EndTransaction())
}

func TestLatchEdges(t *testing.T) {
	b := New()
	var hooked []uint32
	b.OnLatch = func(w uint32) { hooked = append(hooked, w) }

	require.NoError(t, b.DigitalWrite(led.Latch, gpio.High))
	assert.Empty(t, b.Latched(), "rising edge with nothing shifted commits nothing")

	require.NoError(t, b.DigitalWrite(led.Latch, gpio.Low))
	shift(t, b, 0x12, 0x34, 0x56, 0x78)
	_, n := b.Shifted()
	assert.Equal(t, 32, n)
	assert.Empty(t, b.Latched(), "bits stay in the register until the rising edge")

	require.NoError(t, b.DigitalWrite(led.Latch, gpio.High))
	assert.Equal(t, []uint32{0x12345678}, b.Latched())
	assert.Equal(t, []uint32{0x12345678}, hooked)

	// holding the latch high is not another edge
	require.NoError(t, b.DigitalWrite(led.Latch, gpio.High))
	assert.Len(t, b.Latched(), 1)

	require.NoError(t, b.DigitalWrite(led.Latch, gpio.Low))
	_, n = b.Shifted()
	assert.Zero(t, n, "falling edge starts a new word")
	require.NoError(t, b.DigitalWrite(led.Latch, gpio.High))
	assert.Len(t, b.Latched(), 1)
}

func TestLSBFirstShifting(t *testing.T) {
	b := New()
	s := led.DefaultSettings
	s.Order = led.LSBFirst
	require.NoError(t, b.BeginTransaction(s))
	require.NoError(t, b.Write([]byte{0x01}))
	require.NoError(t, b.EndTransaction())
	w, n := b.Shifted()
	assert.Equal(t, 8, n)
	assert.Equal(t, uint32(0x80), w)
}

func TestBoundedHistoryAndClose(t *testing.T) {
	b := New()
	b.MaxHistory = 2
	for _, v := range []byte{1, 2, 3} {
		require.NoError(t, b.DigitalWrite(led.Latch, gpio.Low))
		shift(t, b, v)
		require.NoError(t, b.DigitalWrite(led.Latch, gpio.High))
	}
	assert.Equal(t, []uint32{0x0102, 0x010203}, b.Latched())

	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.DigitalWrite(led.Latch, gpio.Low), ErrClosed)
	assert.ErrorIs(t, b.BeginTransaction(led.DefaultSettings), ErrClosed)
}
