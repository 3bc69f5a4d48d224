package sequence

import (
	"time"

	"github.com/coreman2200/ledmatrix/internal/matrix"
)

// DefaultFrameDuration is how long each frame stays up unless configured.
const DefaultFrameDuration = 200 * time.Millisecond

// PlayerState enumerates playback states.
type PlayerState string

const (
	Idle     PlayerState = "idle"
	Running  PlayerState = "running"
	Finished PlayerState = "finished"
)

// Hooks are optional callbacks fired from Update.
type Hooks struct {
	// OnFrame fires whenever a different frame goes on display.
	OnFrame func(index int)
	// OnFinish fires once when non-looping playback shows its last frame.
	OnFinish func()
}

// Player steps through a list of frames. Like the text animator it is owned
// by a single goroutine.
type Player struct {
	frames   []matrix.Image
	index    int
	loop     bool
	duration time.Duration
	last     time.Duration
	shown    bool

	canvas matrix.Canvas
	hooks  Hooks
}

// NewPlayer returns an empty looping player.
func NewPlayer(h Hooks) *Player {
	return &Player{
		loop:     true,
		duration: DefaultFrameDuration,
		hooks:    h,
	}
}

// SetFrames replaces the frame list with a copy of frames and rewinds.
func (p *Player) SetFrames(frames []matrix.Image) {
	p.frames = append([]matrix.Image(nil), frames...)
	p.Reset()
}

// ClearFrames drops every frame and rewinds.
func (p *Player) ClearFrames() {
	p.frames = nil
	p.Reset()
}

// Frames returns a copy of the frame list.
func (p *Player) Frames() []matrix.Image {
	return append([]matrix.Image(nil), p.frames...)
}

func (p *Player) FrameCount() int              { return len(p.frames) }
func (p *Player) Index() int                   { return p.index }
func (p *Player) Looping() bool                { return p.loop }
func (p *Player) FrameDuration() time.Duration { return p.duration }
func (p *Player) SetLooping(loop bool)         { p.loop = loop }
func (p *Player) Canvas() matrix.Canvas        { return p.canvas }

// SetFrameDuration sets the time each frame stays up; negative means zero.
func (p *Player) SetFrameDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	p.duration = d
}

// Reset rewinds to the first frame and blanks the canvas.
func (p *Player) Reset() {
	p.index = 0
	p.last = 0
	p.shown = false
	p.canvas.Clear()
}

// State reports where playback stands.
func (p *Player) State() PlayerState {
	switch {
	case p.Finished():
		return Finished
	case p.shown:
		return Running
	}
	return Idle
}

// Finished reports whether non-looping playback has reached its last frame.
func (p *Player) Finished() bool {
	return !p.loop && p.shown && p.index+1 >= len(p.frames)
}

// Update advances playback to time now and returns the frame to show.
func (p *Player) Update(now time.Duration) matrix.Canvas {
	if len(p.frames) == 0 {
		p.canvas.Clear()
		p.shown = false
		return p.canvas
	}
	if !p.shown {
		if p.index >= len(p.frames) {
			p.index = 0
		}
		p.show(p.index, now)
		return p.canvas
	}
	if p.duration > 0 && now-p.last < p.duration {
		return p.canvas
	}
	p.last = now
	next := p.index + 1
	if next >= len(p.frames) {
		if !p.loop {
			return p.canvas
		}
		next = 0
	}
	p.show(next, now)
	return p.canvas
}

func (p *Player) show(i int, now time.Duration) {
	p.index = i
	p.canvas = p.frames[i].Canvas()
	p.shown = true
	p.last = now
	if p.hooks.OnFrame != nil {
		p.hooks.OnFrame(i)
	}
	if p.Finished() && p.hooks.OnFinish != nil {
		p.hooks.OnFinish()
	}
}
