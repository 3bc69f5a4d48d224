package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/coreman2200/ledmatrix/internal/brightness"
	diag "github.com/coreman2200/ledmatrix/internal/diagnostics"
	"github.com/coreman2200/ledmatrix/internal/frame"
	"github.com/coreman2200/ledmatrix/internal/led"
	"github.com/coreman2200/ledmatrix/internal/render"
)

// HWConfig describes the chain and the timing of both loops.
type HWConfig struct {
	Bus       led.Bus
	Settings  led.Settings
	RowPeriod time.Duration
	Interval  time.Duration
	Waiter    render.Waiter
	Clock     clockwork.Clock
	Log       *zerolog.Logger
	Feed      *diag.Feed
}

// Core is a running panel: the scanner on its own OS thread and the
// producer feeding it.
type Core struct {
	Chain    *led.Chain
	Exchange *frame.Exchange
	Scanner  *render.Scanner
	Producer *Producer

	log    zerolog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	err    error
}

// Start brings the chain up, publishes a first frame and launches both
// loops. A chain that fails to initialize is fatal and returned as is.
func Start(ctx context.Context, hw HWConfig, scene *Scene) (*Core, error) {
	if hw.Bus == nil {
		return nil, errors.New("app: no bus")
	}
	if hw.Settings == (led.Settings{}) {
		hw.Settings = led.DefaultSettings
	}
	log := zerolog.Nop()
	if hw.Log != nil {
		log = *hw.Log
	}
	scanLog := log.With().Str("loop", "scanner").Logger()
	prodLog := log.With().Str("loop", "producer").Logger()
	chain := led.NewChain(hw.Bus, hw.Settings)
	if err := chain.Begin(); err != nil {
		hw.Feed.Publish(diag.Diagnostic{
			Severity:       diag.Err,
			Code:           "CHAIN.BEGIN",
			Summary:        "Shift-register chain failed to initialize",
			Detail:         err.Error(),
			LikelyCauses:   []string{"SPI disabled", "latch or output-enable pin busy"},
			SuggestedFixes: []string{"enable spi in /boot/config.txt", "check the pin configuration"},
		})
		return nil, fmt.Errorf("app: start renderer: %w", err)
	}

	_, duty := scene.Brightness()
	exch := frame.NewExchange(nil, frame.Record{Duty: duty, Scale: brightness.Scale})
	scanner := render.NewScanner(chain, exch, render.Options{
		RowPeriod: hw.RowPeriod,
		Waiter:    hw.Waiter,
		Log:       &scanLog,
	})
	producer := NewProducer(scene, exch, ProducerOptions{
		Interval: hw.Interval,
		Clock:    hw.Clock,
		Log:      &prodLog,
	})
	producer.Step(0)

	name := fmt.Sprintf("%T", hw.Bus)
	if s, ok := hw.Bus.(fmt.Stringer); ok {
		name = s.String()
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Core{
		Chain:    chain,
		Exchange: exch,
		Scanner:  scanner,
		Producer: producer,
		log:      log,
		cancel:   cancel,
	}
	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		_ = scanner.Run(ctx)
	}()
	go func() {
		defer c.wg.Done()
		_ = producer.Run(ctx)
	}()
	log.Info().Str("bus", name).Msg("panel running")
	return c, nil
}

// Stop halts both loops, blanks the panel and releases the bus.
func (c *Core) Stop() error {
	c.once.Do(func() {
		c.cancel()
		c.wg.Wait()
		c.err = c.Chain.Close()
		c.log.Info().
			Uint64("passes", c.Scanner.Passes()).
			Uint64("frames", c.Exchange.Published()).
			Msg("panel stopped")
	})
	return c.err
}
