package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/ledmatrix/internal/brightness"
	diag "github.com/coreman2200/ledmatrix/internal/diagnostics"
	"github.com/coreman2200/ledmatrix/internal/driver/fake"
	"github.com/coreman2200/ledmatrix/internal/frame"
	"github.com/coreman2200/ledmatrix/internal/layout"
	"github.com/coreman2200/ledmatrix/internal/led"
	"github.com/coreman2200/ledmatrix/internal/matrix"
	"github.com/coreman2200/ledmatrix/internal/pattern"
	"github.com/coreman2200/ledmatrix/internal/sequence"
	"github.com/coreman2200/ledmatrix/internal/text"
)

func TestSceneDefaults(t *testing.T) {
	s := NewScene(sequence.Hooks{})
	st := s.Status()
	assert.Equal(t, layout.TextMode, st.DisplayMode)
	assert.Equal(t, layout.Dual, st.Layout)
	assert.Equal(t, 50.0, st.Brightness.Percent)
	assert.Equal(t, brightness.Duty(50), st.Brightness.Duty)
	assert.Equal(t, brightness.Scale, st.Brightness.Scale)
	assert.Equal(t, text.DefaultText, st.Top.Text)
	assert.Equal(t, int64(50), st.Top.FrameDuration)
	assert.Empty(t, st.Top.Char)
	assert.Zero(t, st.Images.Count)
}

func TestSceneBrightnessClamps(t *testing.T) {
	s := NewScene(sequence.Hooks{})
	s.SetBrightness(250)
	p, d := s.Brightness()
	assert.Equal(t, 100.0, p)
	assert.Equal(t, brightness.Scale, d)
	s.SetBrightness(-3)
	p, d = s.Brightness()
	assert.Zero(t, p)
	assert.Zero(t, d)
}

func TestStepPublishesActiveSource(t *testing.T) {
	s := NewScene(sequence.Hooks{})
	s.Top.SetText("A")
	s.Top.SetMode(text.Hold)
	s.Layout = layout.SingleTop
	exch := frame.NewExchange(nil, frame.Record{})
	p := NewProducer(s, exch, ProducerOptions{Clock: clockwork.NewFakeClock()})

	p.Step(0)
	rec := exch.Snapshot()
	assert.NotZero(t, rec.Canvas.Count())
	assert.Equal(t, brightness.Duty(50), rec.Duty)
	assert.Equal(t, brightness.Scale, rec.Scale)
	assert.Equal(t, "A", p.Status().Top.Char)
	assert.Equal(t, uint64(1), p.Status().Frames)

	frames, err := pattern.Frames(pattern.Full)
	require.NoError(t, err)
	s.Images.SetFrames(frames)
	s.Mode = layout.ImageMode
	p.Step(time.Millisecond)
	rec = exch.Snapshot()
	assert.Equal(t, 256, rec.Canvas.Count())
	assert.Equal(t, layout.ImageMode, p.Status().DisplayMode)
}

func TestRunAppliesCommandsOnProducer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScene(sequence.Hooks{})
	exch := frame.NewExchange(nil, frame.Record{})
	p := NewProducer(s, exch, ProducerOptions{Clock: clock, Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.NoError(t, p.Do(ctx, func(s *Scene) {
		s.Top.SetText("XY")
		s.SetBrightness(100)
	}))
	st := p.Status()
	assert.Equal(t, "XY", st.Top.Text, "status is refreshed after a command")
	assert.Equal(t, brightness.Scale, st.Brightness.Duty)

	clock.BlockUntil(1)
	clock.Advance(5 * time.Millisecond)
	require.Eventually(t, func() bool { return exch.Published() > 0 }, time.Second, time.Millisecond)
	assert.Equal(t, brightness.Scale, exch.Snapshot().Duty)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestDoHonoursContext(t *testing.T) {
	p := NewProducer(NewScene(sequence.Hooks{}), frame.NewExchange(nil, frame.Record{}), ProducerOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Do(ctx, func(*Scene) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded, "nobody runs the producer")
}

func TestStartAndStop(t *testing.T) {
	bus := fake.New()
	bus.MaxHistory = 256
	s := NewScene(sequence.Hooks{})
	s.Layout = layout.SingleTop
	s.Top.SetMode(text.Hold)
	s.Top.SetText("#")

	core, err := Start(context.Background(), HWConfig{
		Bus:       bus,
		RowPeriod: 50 * time.Microsecond,
	}, s)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return core.Scanner.Passes() > 2 }, 2*time.Second, time.Millisecond)
	lit := false
	for _, w := range bus.Latched() {
		if w != matrix.BlankWord {
			lit = true
		}
	}
	assert.True(t, lit, "rows of the glyph reach the chain")
	assert.Equal(t, led.DefaultSettings, bus.Settings())

	require.NoError(t, core.Stop())
	w, _ := bus.LastLatched()
	assert.Equal(t, matrix.BlankWord, w)
	assert.True(t, bus.Closed())
	assert.NoError(t, core.Stop(), "stop is idempotent")
}

func TestStartFailsWhenChainDoesNot(t *testing.T) {
	boom := errors.New("spi busy")
	feed := diag.NewFeed(4)
	_, err := Start(context.Background(), HWConfig{
		Bus:  &brokenBus{Bus: fake.New(), err: boom},
		Feed: feed,
	}, NewScene(sequence.Hooks{}))
	assert.ErrorIs(t, err, boom)
	require.Len(t, feed.Recent(), 1)
	assert.Equal(t, diag.Err, feed.Recent()[0].Severity)

	_, err = Start(context.Background(), HWConfig{}, NewScene(sequence.Hooks{}))
	assert.Error(t, err)
}

type brokenBus struct {
	*fake.Bus
	err error
}

func (b *brokenBus) PinMode(led.Role, led.PinMode) error { return b.err }
