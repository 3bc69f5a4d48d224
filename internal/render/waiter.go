package render

import "time"

// Waiter blocks the scanning goroutine for one slot of the row period.
type Waiter interface {
	Wait(d time.Duration)
}

// TimerWaiter parks the caller on a runtime timer. The timer is re-armed
// with the full duration on every call, so slot lengths never accumulate
// drift from earlier rows.
type TimerWaiter struct {
	t *time.Timer
}

func NewTimerWaiter() *TimerWaiter {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return &TimerWaiter{t: t}
}

func (w *TimerWaiter) Wait(d time.Duration) {
	if d <= 0 {
		return
	}
	w.t.Reset(d)
	<-w.t.C
}

// Stop releases the timer.
func (w *TimerWaiter) Stop() { w.t.Stop() }

// WaiterFunc adapts a function to Waiter.
type WaiterFunc func(d time.Duration)

func (f WaiterFunc) Wait(d time.Duration) { f(d) }
