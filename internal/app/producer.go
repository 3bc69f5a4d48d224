package app

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/coreman2200/ledmatrix/internal/brightness"
	"github.com/coreman2200/ledmatrix/internal/frame"
)

// DefaultInterval is the producer's yield between iterations.
const DefaultInterval = time.Millisecond

type ProducerOptions struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Log      *zerolog.Logger
}

// Producer owns the Scene. Every iteration it advances the active animator,
// composes a frame and publishes it together with the current duty.
// Mutations from other goroutines are queued and run between iterations.
type Producer struct {
	scene    *Scene
	exch     *frame.Exchange
	clock    clockwork.Clock
	interval time.Duration
	start    time.Time
	log      zerolog.Logger

	cmds chan func(*Scene)

	mu     sync.RWMutex
	status Status
}

func NewProducer(scene *Scene, exch *frame.Exchange, opt ProducerOptions) *Producer {
	if opt.Interval <= 0 {
		opt.Interval = DefaultInterval
	}
	if opt.Clock == nil {
		opt.Clock = clockwork.NewRealClock()
	}
	log := zerolog.Nop()
	if opt.Log != nil {
		log = *opt.Log
	}
	p := &Producer{
		scene:    scene,
		exch:     exch,
		clock:    opt.Clock,
		interval: opt.Interval,
		start:    opt.Clock.Now(),
		log:      log,
		cmds:     make(chan func(*Scene)),
	}
	p.status = scene.Status()
	return p
}

// Step runs one iteration at now, measured from the producer's start.
func (p *Producer) Step(now time.Duration) {
	canvas := p.scene.Compose(now)
	_, duty := p.scene.Brightness()
	p.exch.Publish(frame.Record{Canvas: canvas, Duty: duty, Scale: brightness.Scale})
	p.refresh()
}

func (p *Producer) refresh() {
	st := p.scene.Status()
	st.Frames = p.exch.Published()
	p.mu.Lock()
	p.status = st
	p.mu.Unlock()
}

// Run loops until ctx is done. It must be the only goroutine touching the
// scene while it runs.
func (p *Producer) Run(ctx context.Context) error {
	t := p.clock.NewTicker(p.interval)
	defer t.Stop()
	p.log.Debug().Dur("interval", p.interval).Msg("producer running")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-p.cmds:
			fn(p.scene)
		case <-t.Chan():
			p.Step(p.clock.Since(p.start))
		}
	}
}

// Do runs fn on the producer goroutine and waits for it to finish.
func (p *Producer) Do(ctx context.Context, fn func(*Scene)) error {
	done := make(chan struct{})
	wrapped := func(s *Scene) {
		defer close(done)
		fn(s)
		p.refresh()
	}
	select {
	case p.cmds <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the state as of the last iteration or mutation.
func (p *Producer) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}
