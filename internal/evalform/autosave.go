package evalform

import (
	"sync"
	"time"
)

// QuietPeriod is how long the form must stay untouched before a scheduled
// draft save fires.
const QuietPeriod = 1200 * time.Millisecond

type canceler interface {
	Stop() bool
}

type timerFactory func(d time.Duration, fn func()) canceler

// Debouncer coalesces bursts of edits into one draft save: arming it
// cancels any previously scheduled save and schedules a new one after the
// quiet period. At most one save is pending per form at any time.
type Debouncer struct {
	quiet    time.Duration
	newTimer timerFactory

	mu      sync.Mutex
	pending canceler
}

// NewDebouncer creates a debouncer backed by real timers.
func NewDebouncer(quiet time.Duration) *Debouncer {
	return &Debouncer{
		quiet: quiet,
		newTimer: func(d time.Duration, fn func()) canceler {
			return time.AfterFunc(d, fn)
		},
	}
}

// newDebouncerWithTimer injects a timer factory so coalescing is testable
// without wall-clock delays.
func newDebouncerWithTimer(quiet time.Duration, factory timerFactory) *Debouncer {
	return &Debouncer{quiet: quiet, newTimer: factory}
}

// Arm schedules save to run once after the quiet period, replacing any
// previously scheduled save.
func (d *Debouncer) Arm(save func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Stop()
	}
	d.pending = d.newTimer(d.quiet, func() {
		d.mu.Lock()
		d.pending = nil
		d.mu.Unlock()
		save()
	})
}

// Cancel drops any pending save. Navigating away does this implicitly;
// callers must tolerate a save that never fires.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
