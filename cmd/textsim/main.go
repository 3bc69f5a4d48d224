package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/coreman2200/ledmatrix/internal/layout"
	"github.com/coreman2200/ledmatrix/internal/matrix"
	"github.com/coreman2200/ledmatrix/internal/text"
)

// textsim steps the text animators on a virtual clock and prints every
// frame that differs from the one before it.
func main() {
	var (
		top, bottom string
		mode        string
		lay         string
		step        time.Duration
		maxTicks    int
		loop        bool
	)
	flag.StringVar(&top, "top", "HI", "top line")
	flag.StringVar(&bottom, "bottom", "", "bottom line (dual layout only)")
	flag.StringVar(&mode, "mode", "scroll", "hold | scroll")
	flag.StringVar(&lay, "layout", "single_top", "dual | single_top | single_bottom | center")
	flag.DurationVar(&step, "step", 0, "virtual time per tick, 0 uses the mode default")
	flag.IntVar(&maxTicks, "ticks", 200, "stop after this many ticks")
	flag.BoolVar(&loop, "loop", false, "loop the message")
	flag.Parse()

	m, err := text.ParseMode(mode)
	if err != nil {
		log.Fatal(err)
	}
	l, err := layout.ParseTextLayout(lay)
	if err != nil {
		log.Fatal(err)
	}
	if step <= 0 {
		step = text.DefaultDuration(m)
	}

	lines := []*text.Animator{text.New(), text.New()}
	for i, s := range []string{top, bottom} {
		lines[i].SetText(s)
		lines[i].SetMode(m)
		lines[i].SetFrameDuration(text.DefaultDuration(m))
		lines[i].SetLooping(loop)
	}
	comp := layout.NewComposer(lines[0], lines[1])

	var prev matrix.Canvas
	for tick := 0; tick < maxTicks; tick++ {
		now := time.Duration(tick) * step
		c := comp.Compose(l, now)
		if tick == 0 || !c.Equal(prev) {
			fmt.Printf("t=%v top=%q bottom=%q\n%s\n", now, char(lines[0]), char(lines[1]), c.String())
		}
		prev = c
		if done(l, lines) {
			fmt.Println("Done at t=", now)
			return
		}
	}
}

func char(a *text.Animator) string {
	if c := a.CurrentChar(); c != 0 {
		return string(rune(c))
	}
	return ""
}

func done(l layout.TextLayout, lines []*text.Animator) bool {
	switch l {
	case layout.SingleTop, layout.Center:
		return lines[0].Finished()
	case layout.SingleBottom:
		return lines[1].Finished()
	}
	return lines[0].Finished() && lines[1].Finished()
}
