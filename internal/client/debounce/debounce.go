// Package debounce delays a callback until a value has stopped changing for
// a quiet period.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period used for text edits.
const DefaultDelay = 300 * time.Millisecond

// Debouncer calls fn with the latest value once no new value has been set
// for delay. At most one call is pending at any time.
type Debouncer[T comparable] struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(T)
	current T
	timer   *time.Timer
	// gen invalidates a timer that fired while being replaced or stopped
	gen     uint64
	running int
	stopped bool
}

// New returns a debouncer whose baseline is initial. The initial value is
// never passed to fn.
func New[T comparable](initial T, delay time.Duration, fn func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{delay: delay, fn: fn, current: initial}
}

// Set records v and re-arms the timer. A value equal to the current one is
// ignored and leaves any pending call untouched.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || v == d.current {
		return
	}
	d.current = v
	d.cancelLocked()

	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Reset replaces the baseline without scheduling a call and cancels any
// pending one.
func (d *Debouncer[T]) Reset(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
	d.current = v
}

// Value returns the most recently set or reset value.
func (d *Debouncer[T]) Value() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Pending reports whether a call is scheduled or still running.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil || d.running > 0
}

// Flush runs a pending call immediately on the calling goroutine. It
// reports whether there was one.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.timer == nil {
		d.mu.Unlock()
		return false
	}
	d.cancelLocked()
	v := d.current
	d.running++
	d.mu.Unlock()

	d.call(v)
	return true
}

// Stop cancels a pending call; later Sets are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.cancelLocked()
}

func (d *Debouncer[T]) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	v := d.current
	d.running++
	d.mu.Unlock()

	d.call(v)
}

func (d *Debouncer[T]) call(v T) {
	defer func() {
		d.mu.Lock()
		d.running--
		d.mu.Unlock()
	}()
	d.fn(v)
}
