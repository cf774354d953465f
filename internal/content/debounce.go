package content

import (
	"sync"
	"time"
)

// Debouncer runs a function once the caller has been quiet for the
// configured delay. Each Trigger replaces the pending run; Stop cancels it.
// It models re-detection on typing as an explicit cancellable delayed task
// rather than an ambient timer.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		mu:    sync.Mutex{},
		delay: delay,
		timer: nil,
	}
}

// Trigger schedules fn to run after the quiet period, cancelling any run
// still pending from an earlier Trigger.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels the pending run, if any. It is safe to call repeatedly and
// safe to call when nothing is pending.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
