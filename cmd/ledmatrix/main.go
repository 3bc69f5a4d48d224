package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/ledmatrix/internal/app"
	"github.com/coreman2200/ledmatrix/internal/config"
	diag "github.com/coreman2200/ledmatrix/internal/diagnostics"
	"github.com/coreman2200/ledmatrix/internal/driver/preview"
	"github.com/coreman2200/ledmatrix/internal/imageio"
	"github.com/coreman2200/ledmatrix/internal/layout"
	"github.com/coreman2200/ledmatrix/internal/led"
	"github.com/coreman2200/ledmatrix/internal/matrix"
	"github.com/coreman2200/ledmatrix/internal/pattern"
	"github.com/coreman2200/ledmatrix/internal/sequence"
	"github.com/coreman2200/ledmatrix/internal/text"
	"github.com/coreman2200/ledmatrix/internal/ws"
)

func main() {
	// ---- Flags (remain usable; config.yaml overrides where set) ----
	var (
		driver     = flag.String("driver", "sim", "driver: periph | gpiocdev | sim")
		spiPort    = flag.String("spi", "", "SPI port name, empty picks the first")
		speedHz    = flag.Int("speed-hz", 4_000_000, "SPI clock in Hz")
		latchPin   = flag.String("latch", "GPIO2", "latch pin name")
		oePin      = flag.String("oe", "GPIO0", "output-enable pin name")
		rowPeriod  = flag.Duration("row-period", 520*time.Microsecond, "time each row is driven")
		brightness = flag.Float64("brightness", 50, "brightness 0..100")
		topText    = flag.String("top", text.DefaultText, "top line text")
		bottomText = flag.String("bottom", text.DefaultText, "bottom line text")
		textLayout = flag.String("layout", "dual", "text layout: dual | single_top | single_bottom | center")
		images     = flag.String("images", "", "comma-separated image files to play")
		patternArg = flag.String("pattern", "", "diagnostic pattern: running_light | rows | columns | full | checker")
		previewMin = flag.Duration("preview", time.Second, "sim driver: min interval between printed frames")
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		logLevel   = flag.String("log-level", "info", "zerolog level")
		simOnly    = flag.Bool("sim-only", false, "force simulation (no hardware output)")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	if lvl, err := zerolog.ParseLevel(*logLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Err(err).Str("level", *logLevel).Msg("bad log level; using info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// ---- Effective config: defaults, then flags, then config.yaml ----
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := config.Default()
	cfg.Driver = *driver
	cfg.SPI = config.SPI{Port: *spiPort, SpeedHz: *speedHz}
	cfg.Pins.Latch, cfg.Pins.OutputEnable = *latchPin, *oePin
	cfg.RowPeriodUs = int(rowPeriod.Microseconds())
	cfg.Display.Brightness = *brightness
	cfg.Display.Layout = *textLayout
	cfg.Text.Top.Text, cfg.Text.Bottom.Text = *topText, *bottomText
	cfg.HTTP.Addr = *addr
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = c
		// explicit flags still win over the file
		if set["driver"] {
			cfg.Driver = *driver
		}
		if set["addr"] {
			cfg.HTTP.Addr = *addr
		}
		if set["brightness"] {
			cfg.Display.Brightness = *brightness
		}
	}
	if *images != "" {
		cfg.Image.Files = strings.Split(*images, ",")
	}
	if *patternArg != "" {
		cfg.Image.Pattern = *patternArg
	}
	if *simOnly {
		cfg.Driver = "sim"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	feed := diag.NewFeed(32)

	// ---- Driver selection with SIM fallback ----
	bus, selected := openBus(cfg, *previewMin, feed)

	// ---- Scene ----
	scene := app.NewScene(sequence.Hooks{
		OnFinish: func() { log.Debug().Msg("image sequence finished") },
	})
	configureScene(scene, cfg, feed)

	settings := led.DefaultSettings
	settings.Clock = physic.Frequency(cfg.SPI.SpeedHz) * physic.Hertz

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := log.Logger
	core, err := app.Start(ctx, app.HWConfig{
		Bus:       bus,
		Settings:  settings,
		RowPeriod: time.Duration(cfg.RowPeriodUs) * time.Microsecond,
		Interval:  time.Duration(cfg.ProducerIntervalMs) * time.Millisecond,
		Log:       &logger,
		Feed:      feed,
	}, scene)
	if err != nil {
		log.Fatal().Err(err).Str("driver", selected).Msg("renderer failed to start")
	}

	// ---- HTTP ----
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      ws.NewServer(core.Producer, feed, selected).Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Str("driver", selected).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	_ = srv.Shutdown(shutdownCtx)
	if err := core.Stop(); err != nil {
		log.Error().Err(err).Msg("panel did not shut down cleanly")
	}
}

func openBus(cfg *config.Config, throttle time.Duration, feed *diag.Feed) (led.Bus, string) {
	sim := func() led.Bus { return preview.New(os.Stdout, throttle) }
	fallback := func(err error) (led.Bus, string) {
		log.Warn().Err(err).Str("driver", cfg.Driver).Msg("hardware init failed; falling back to SIM")
		feed.Publish(diag.Diagnostic{
			Severity:       diag.Warn,
			Code:           "DRIVER.FALLBACK",
			Summary:        "Hardware driver unavailable, running the simulator",
			Detail:         err.Error(),
			SuggestedFixes: []string{"run as a user with access to /dev/spidev* and /dev/gpiochip*"},
		})
		return sim(), "sim"
	}

	switch cfg.Driver {
	case "periph":
		b, err := led.OpenPeriph(led.PeriphConfig{
			Port:         cfg.SPI.Port,
			Data:         cfg.Pins.Data,
			Clock:        cfg.Pins.Clock,
			Latch:        cfg.Pins.Latch,
			OutputEnable: cfg.Pins.OutputEnable,
		})
		if err != nil {
			return fallback(err)
		}
		return b, "periph"
	case "gpiocdev":
		b, err := led.OpenGpiocdev(led.GpiocdevConfig{
			Chip:         cfg.Gpiocdev.Chip,
			Latch:        cfg.Gpiocdev.Latch,
			OutputEnable: cfg.Gpiocdev.OutputEnable,
			SPIPort:      cfg.SPI.Port,
		})
		if err != nil {
			return fallback(err)
		}
		return b, "gpiocdev"
	}
	return sim(), "sim"
}

// configureScene applies cfg before the producer starts, so no queueing is
// needed yet.
func configureScene(s *app.Scene, cfg *config.Config, feed *diag.Feed) {
	s.SetBrightness(cfg.Display.Brightness)
	s.Mode, _ = layout.ParseDisplayMode(cfg.Display.Mode)
	s.Layout, _ = layout.ParseTextLayout(cfg.Display.Layout)
	for _, l := range []struct {
		a   *text.Animator
		cfg config.Line
	}{{s.Top, cfg.Text.Top}, {s.Bottom, cfg.Text.Bottom}} {
		mode, _ := text.ParseMode(l.cfg.Mode)
		l.a.SetText(l.cfg.Text)
		l.a.SetMode(mode)
		l.a.SetFrameDuration(time.Duration(l.cfg.FrameDurationMs) * time.Millisecond)
		l.a.SetLooping(l.cfg.Loop)
	}

	s.Images.SetFrameDuration(time.Duration(cfg.Image.FrameDurationMs) * time.Millisecond)
	s.Images.SetLooping(cfg.Image.Loop)
	opt := imageio.Options{Threshold: uint8(cfg.Image.Threshold), Invert: cfg.Image.Invert}
	if len(cfg.Image.Files) > 0 {
		frames, err := imageio.LoadFiles(cfg.Image.Files, opt)
		if err != nil {
			log.Warn().Err(err).Msg("images not loaded")
		} else {
			s.Images.SetFrames(frames)
			s.Mode = layout.ImageMode
			log.Info().Int("frames", len(frames)).Msg("images loaded")
		}
	}
	if cfg.Image.Pattern != "" {
		k, err := pattern.Parse(cfg.Image.Pattern)
		if err == nil {
			var frames []matrix.Image
			frames, err = pattern.Frames(k)
			if err == nil {
				s.Images.SetFrames(frames)
				s.Mode = layout.ImageMode
				feed.Publish(diag.Diagnostic{Severity: diag.Info, Code: "PATTERN.RUNNING", Summary: "Running pattern", Detail: string(k)})
			}
		}
		if err != nil {
			log.Warn().Err(err).Msg("pattern not loaded")
		}
	}
}
