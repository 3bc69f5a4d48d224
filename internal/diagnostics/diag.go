package diagnostics

import (
	"sync"
	"time"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Time           time.Time      `json:"time"`
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Feed fans diagnostics out to subscribers and keeps the most recent ones
// for late joiners. A nil *Feed drops everything.
type Feed struct {
	mu     sync.Mutex
	recent []Diagnostic
	keep   int
	subs   map[chan Diagnostic]struct{}
}

func NewFeed(keep int) *Feed {
	return &Feed{keep: keep, subs: map[chan Diagnostic]struct{}{}}
}

// Publish stamps d and delivers it without blocking; a subscriber whose
// buffer is full misses it.
func (f *Feed) Publish(d Diagnostic) {
	if f == nil {
		return
	}
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keep > 0 {
		f.recent = append(f.recent, d)
		if len(f.recent) > f.keep {
			f.recent = append(f.recent[:0], f.recent[len(f.recent)-f.keep:]...)
		}
	}
	for ch := range f.subs {
		select {
		case ch <- d:
		default:
		}
	}
}

// Subscribe returns a channel of future diagnostics and its cancel func.
func (f *Feed) Subscribe(buf int) (<-chan Diagnostic, func()) {
	ch := make(chan Diagnostic, buf)
	if f == nil {
		return ch, func() {}
	}
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
		})
	}
}

// Recent returns the retained diagnostics, oldest first.
func (f *Feed) Recent() []Diagnostic {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Diagnostic(nil), f.recent...)
}
