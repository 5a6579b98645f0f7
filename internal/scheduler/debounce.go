package scheduler

import (
	"sync"
	"time"

	"github.com/juju/clock"
)

// Debouncer collapses bursts of signals into one call. fn runs once the
// window has elapsed without a new signal. Calls never overlap: a window
// that closes while fn is running queues exactly one more call, made as
// soon as the running one returns.
type Debouncer struct {
	clock  clock.Clock
	window time.Duration
	fn     func()

	mu      sync.Mutex
	timer   clock.Timer
	gen     uint64
	stopped bool
	running bool
	pending bool
}

// NewDebouncer returns a Debouncer that calls fn on clk's timer goroutine.
func NewDebouncer(clk clock.Clock, window time.Duration, fn func()) *Debouncer {
	return &Debouncer{clock: clk, window: window, fn: fn}
}

// Trigger records a signal and restarts the window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.window, func() { d.fire(gen) })
}

// fire runs fn unless a newer signal or Stop superseded this timer. If fn
// is already running, the call is left to the running goroutine.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	if d.running {
		d.pending = true
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	for {
		d.fn()

		d.mu.Lock()
		if !d.pending || d.stopped {
			d.running = false
			d.pending = false
			d.mu.Unlock()
			return
		}
		d.pending = false
		d.mu.Unlock()
	}
}

// Stop cancels any pending call. Later signals are ignored. A call already
// running is not interrupted.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
