package app

import (
	"time"

	"github.com/coreman2200/ledmatrix/internal/brightness"
	"github.com/coreman2200/ledmatrix/internal/layout"
	"github.com/coreman2200/ledmatrix/internal/matrix"
	"github.com/coreman2200/ledmatrix/internal/sequence"
	"github.com/coreman2200/ledmatrix/internal/text"
)

// Scene is everything the producer animates. It belongs to the producer
// goroutine; other goroutines change it through Producer.Do.
type Scene struct {
	Top    *text.Animator
	Bottom *text.Animator
	Images *sequence.Player
	Mode   layout.DisplayMode
	Layout layout.TextLayout

	percent  float64
	duty     uint16
	composer *layout.Composer
}

// NewScene starts in text mode with both lines on their defaults, the dual
// layout and 50% brightness.
func NewScene(h sequence.Hooks) *Scene {
	s := &Scene{
		Top:    text.New(),
		Bottom: text.New(),
		Images: sequence.NewPlayer(h),
		Mode:   layout.TextMode,
		Layout: layout.Dual,
	}
	s.composer = layout.NewComposer(s.Top, s.Bottom)
	s.SetBrightness(50)
	return s
}

// SetBrightness clamps p to [0, 100] and recomputes the duty.
func (s *Scene) SetBrightness(p float64) {
	s.percent = brightness.ClampPercent(p)
	s.duty = brightness.Duty(s.percent)
}

func (s *Scene) Brightness() (percent float64, duty uint16) { return s.percent, s.duty }

// Compose advances whichever source the display mode selects.
func (s *Scene) Compose(now time.Duration) matrix.Canvas {
	if s.Mode == layout.ImageMode {
		return s.Images.Update(now)
	}
	return s.composer.Compose(s.Layout, now)
}

// LineStatus echoes one text line.
type LineStatus struct {
	Text          string    `json:"text"`
	Mode          text.Mode `json:"mode"`
	FrameDuration int64     `json:"frameDuration"` // ms
	Loop          bool      `json:"loop"`
	Char          string    `json:"char"`
	Finished      bool      `json:"finished"`
}

type BrightnessStatus struct {
	Percent float64 `json:"percent"`
	Duty    uint16  `json:"duty"`
	Scale   uint16  `json:"scale"`
}

type ImagesStatus struct {
	Count         int                  `json:"count"`
	Index         int                  `json:"index"`
	FrameDuration int64                `json:"frameDuration"` // ms
	Loop          bool                 `json:"loop"`
	Finished      bool                 `json:"finished"`
	State         sequence.PlayerState `json:"state"`
}

// Status is the outward view of a Scene. It never carries pixels.
type Status struct {
	DisplayMode layout.DisplayMode `json:"displayMode"`
	Layout      layout.TextLayout  `json:"layout"`
	Brightness  BrightnessStatus   `json:"brightness"`
	Top         LineStatus         `json:"top"`
	Bottom      LineStatus         `json:"bottom"`
	Images      ImagesStatus       `json:"images"`
	Frames      uint64             `json:"frames"`
}

func lineStatus(a *text.Animator) LineStatus {
	ls := LineStatus{
		Text:          a.Text(),
		Mode:          a.Mode(),
		FrameDuration: a.FrameDuration().Milliseconds(),
		Loop:          a.Looping(),
		Finished:      a.Finished(),
	}
	if c := a.CurrentChar(); c != 0 {
		ls.Char = string(rune(c))
	}
	return ls
}

// Status reports the scene as it stands.
func (s *Scene) Status() Status {
	return Status{
		DisplayMode: s.Mode,
		Layout:      s.Layout,
		Brightness:  BrightnessStatus{Percent: s.percent, Duty: s.duty, Scale: brightness.Scale},
		Top:         lineStatus(s.Top),
		Bottom:      lineStatus(s.Bottom),
		Images: ImagesStatus{
			Count:         s.Images.FrameCount(),
			Index:         s.Images.Index(),
			FrameDuration: s.Images.FrameDuration().Milliseconds(),
			Loop:          s.Images.Looping(),
			Finished:      s.Images.Finished(),
			State:         s.Images.State(),
		},
	}
}
