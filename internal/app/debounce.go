package app

import (
	"context"
	"sync"
	"time"
)

// Debouncer coalesces rapid query updates into a single trailing-edge
// execution. Consecutive duplicate queries are suppressed, and firing a
// new query cancels the context of the previous in-flight execution.
type Debouncer struct {
	interval time.Duration
	run      func(ctx context.Context, query string)

	mu             sync.Mutex
	timer          *time.Timer
	lastQuery      string
	hasLast        bool
	cancelInFlight context.CancelFunc
}

// NewDebouncer creates a debouncer that invokes run after the interval has
// elapsed without further updates. run is invoked on the timer goroutine.
func NewDebouncer(interval time.Duration, run func(ctx context.Context, query string)) *Debouncer {
	return &Debouncer{
		interval: interval,
		run:      run,
	}
}

// Update registers a new query, restarting the debounce window. An update
// identical to the previous one is ignored.
func (d *Debouncer) Update(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hasLast && query == d.lastQuery {
		return
	}

	d.lastQuery = query
	d.hasLast = true

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		d.fire(query)
	})
}

// Flush executes any pending query immediately instead of waiting out the
// debounce window.
func (d *Debouncer) Flush() {
	d.mu.Lock()

	if d.timer == nil || !d.timer.Stop() {
		d.mu.Unlock()
		return
	}

	query := d.lastQuery
	d.mu.Unlock()

	d.fire(query)
}

// Stop cancels any pending execution and the in-flight one.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	if d.cancelInFlight != nil {
		d.cancelInFlight()
		d.cancelInFlight = nil
	}
}

func (d *Debouncer) fire(query string) {
	d.mu.Lock()

	if d.cancelInFlight != nil {
		d.cancelInFlight()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancelInFlight = cancel
	d.mu.Unlock()

	d.run(ctx, query)
}
