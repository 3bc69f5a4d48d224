package render

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/ledmatrix/internal/frame"
	"github.com/coreman2200/ledmatrix/internal/matrix"
)

// DefaultRowPeriod gives a full 16-row refresh of roughly 120 Hz.
const DefaultRowPeriod = 520 * time.Microsecond

// WordWriter accepts one 32-bit chain word per call. *led.Chain satisfies it.
type WordWriter interface {
	WriteWord(word uint32) error
}

type Options struct {
	RowPeriod time.Duration
	Waiter    Waiter
	Log       *zerolog.Logger // nil disables logging
}

// Scanner multiplexes the panel one row at a time, dimming each row by
// splitting its slot into a lit part and a blank part.
type Scanner struct {
	out    WordWriter
	exch   *frame.Exchange
	wait   Waiter
	period time.Duration
	log    zerolog.Logger

	row     int
	rec     frame.Record
	on, off time.Duration

	passes   atomic.Uint64
	failures atomic.Uint64
}

// NewScanner reads frames from exch and writes words to out. A zero
// RowPeriod selects DefaultRowPeriod and a nil Waiter a TimerWaiter.
func NewScanner(out WordWriter, exch *frame.Exchange, opt Options) *Scanner {
	if opt.RowPeriod <= 0 {
		opt.RowPeriod = DefaultRowPeriod
	}
	if opt.Waiter == nil {
		opt.Waiter = NewTimerWaiter()
	}
	log := zerolog.Nop()
	if opt.Log != nil {
		log = *opt.Log
	}
	return &Scanner{
		out:    out,
		exch:   exch,
		wait:   opt.Waiter,
		period: opt.RowPeriod,
		log:    log.Sample(&zerolog.BurstSampler{Burst: 1, Period: time.Second}),
	}
}

// SlotTimes splits a row period into lit and blank time for duty/scale.
func SlotTimes(period time.Duration, duty, scale uint16) (on, off time.Duration) {
	switch {
	case duty == 0 || scale == 0:
		on = 0
	case duty >= scale:
		on = period
	default:
		on = period * time.Duration(duty) / time.Duration(scale)
	}
	return on, period - on
}

// ScanRow drives the next row for one period. At the top of every pass the
// shared record is re-read, so a pass never mixes two frames.
func (s *Scanner) ScanRow() error {
	if s.row == 0 {
		s.rec = s.exch.Snapshot()
		s.on, s.off = SlotTimes(s.period, s.rec.Duty, s.rec.Scale)
	}
	row := s.row
	s.row++
	if s.row == matrix.Size {
		s.row = 0
		s.passes.Add(1)
	}

	if s.on > 0 {
		if err := s.out.WriteWord(s.rec.Canvas.RowWord(row)); err != nil {
			return err
		}
		s.wait.Wait(s.on)
	}
	if err := s.out.WriteWord(matrix.BlankWord); err != nil {
		return err
	}
	switch {
	case s.on == 0:
		s.wait.Wait(s.period)
	case s.off > 0:
		s.wait.Wait(s.off)
	}
	return nil
}

// Run scans until ctx is cancelled. Cancellation is observed between passes
// so the panel is never left mid-frame.
func (s *Scanner) Run(ctx context.Context) error {
	s.log.Debug().Dur("row_period", s.period).Msg("scanner running")
	for {
		if s.row == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if err := s.ScanRow(); err != nil {
			s.failures.Add(1)
			s.log.Error().Err(err).Uint64("errors", s.failures.Load()).Msg("row write failed")
			s.wait.Wait(s.period)
		}
	}
}

// Passes counts completed 16-row refreshes.
func (s *Scanner) Passes() uint64 { return s.passes.Load() }

// Errors counts failed row writes.
func (s *Scanner) Errors() uint64 { return s.failures.Load() }
