package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/coreman2200/ledmatrix/internal/imageio"
	"github.com/coreman2200/ledmatrix/internal/matrix"
	"github.com/coreman2200/ledmatrix/internal/pattern"
	"github.com/coreman2200/ledmatrix/internal/sequence"
)

// seqsim plays a pattern or a set of image files through the image
// animator on a virtual clock, printing each frame as it goes up.
func main() {
	var (
		patternName string
		files       string
		hexFrames   string
		duration    time.Duration
		loops       int
		threshold   int
		invert      bool
	)
	flag.StringVar(&patternName, "pattern", "", "diagnostic pattern name")
	flag.StringVar(&files, "images", "", "comma-separated image files")
	flag.StringVar(&hexFrames, "hex", "", "comma-separated 64-char hex frames")
	flag.DurationVar(&duration, "duration", sequence.DefaultFrameDuration, "time per frame")
	flag.IntVar(&loops, "loops", 1, "passes over the frames; 1 plays once without looping")
	flag.IntVar(&threshold, "threshold", imageio.DefaultThreshold, "luminance threshold 0..255")
	flag.BoolVar(&invert, "invert", false, "invert image files")
	flag.Parse()

	var frames []matrix.Image
	switch {
	case patternName != "":
		k, err := pattern.Parse(patternName)
		if err != nil {
			log.Fatal(err)
		}
		frames, _ = pattern.Frames(k)
	case files != "":
		var err error
		frames, err = imageio.LoadFiles(strings.Split(files, ","), imageio.Options{Threshold: uint8(threshold), Invert: invert})
		if err != nil {
			log.Fatalf("load images: %v", err)
		}
	case hexFrames != "":
		var err error
		frames, err = matrix.ParseHexList(hexFrames)
		if err != nil {
			log.Fatalf("hex: %v", err)
		}
	default:
		log.Fatal("Provide -pattern, -images or -hex")
	}
	if len(frames) == 0 {
		log.Fatal("no frames")
	}

	// simple logger hooks
	h := sequence.Hooks{
		OnFrame: func(i int) {
			fmt.Printf("[Frame] %d/%d\n", i+1, len(frames))
		},
		OnFinish: func() {
			fmt.Println("[Finish]")
		},
	}
	player := sequence.NewPlayer(h)
	player.SetFrames(frames)
	player.SetFrameDuration(duration)
	player.SetLooping(loops > 1)

	total := loops * len(frames)
	for i := 0; i < total; i++ {
		now := time.Duration(i) * duration
		c := player.Update(now)
		fmt.Printf("t=%v state=%s\n%s", now, player.State(), c.String())
		if player.State() == sequence.Finished {
			break
		}
	}
	fmt.Println("Hex:", matrix.FormatHexList(player.Frames()))
}
