package dataview

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a search term is committed.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer emits the latest pushed value once no new value has arrived for
// the configured window. Superseded values are never emitted, and no new
// emission starts after Stop returns. emit may call Stop.
type Debouncer struct {
	window time.Duration
	emit   func(string)

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	active  int
	stopped bool
}

// NewDebouncer returns a Debouncer calling emit on its own goroutine.
func NewDebouncer(window time.Duration, emit func(string)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{window: window, emit: emit}
}

// Push restarts the window with value.
func (d *Debouncer) Push(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.seq++
	id := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.fire(id, value) })
}

func (d *Debouncer) fire(id uint64, value string) {
	d.mu.Lock()
	current := !d.stopped && id == d.seq
	if current {
		d.timer = nil
		d.active++
	}
	d.mu.Unlock()
	if !current {
		return
	}

	defer func() {
		d.mu.Lock()
		d.active--
		d.mu.Unlock()
	}()
	d.emit(value)
}

// Pending reports whether a value is waiting for its window to elapse or is
// still being emitted.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil || d.active > 0
}

// Stop cancels any pending value. It is safe to call more than once. An
// emission already running when Stop is called runs to completion.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
