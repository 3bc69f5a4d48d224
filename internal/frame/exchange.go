package frame

import (
	"sync"

	"github.com/coreman2200/ledmatrix/internal/matrix"
)

// Record is everything the scanner needs for one refresh pass.
type Record struct {
	Canvas matrix.Canvas
	Duty   uint16
	Scale  uint16
}

// Exchange hands the latest Record from the producer to the scanner. Both
// sides copy the whole record under the lock; the last write wins.
type Exchange struct {
	mu  sync.Locker
	rec Record
	seq uint64
}

// NewExchange guards the record with mu, or a fresh mutex when mu is nil.
func NewExchange(mu sync.Locker, initial Record) *Exchange {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &Exchange{mu: mu, rec: initial}
}

// Publish replaces the shared record.
func (e *Exchange) Publish(r Record) {
	e.mu.Lock()
	e.rec = r
	e.seq++
	e.mu.Unlock()
}

// Snapshot returns a copy of the shared record.
func (e *Exchange) Snapshot() Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec
}

// Published counts Publish calls.
func (e *Exchange) Published() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}
