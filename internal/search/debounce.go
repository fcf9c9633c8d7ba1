// Package search backs the dashboard's type-ahead inputs.
package search

import (
	"context"
	"sync"
	"time"
)

// Result is what a debounced query produced. Gen identifies the input that
// started it; only the latest generation is ever delivered.
type Result[T any] struct {
	Gen   uint64
	Input string
	Value T
	Err   error
}

// Debouncer waits for input to go quiet before running a query. A new input
// inside the delay window cancels the scheduled query; a query already running
// is left alone and its result is dropped when it arrives out of date.
// deliver runs with the Debouncer locked and must not call back into it.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	query   func(ctx context.Context, input string) (T, error)
	deliver func(Result[T])
	timer   *time.Timer
	gen     uint64
	ctx     context.Context
}

func NewDebouncer[T any](ctx context.Context, delay time.Duration, query func(ctx context.Context, input string) (T, error), deliver func(Result[T])) *Debouncer[T] {
	return &Debouncer[T]{
		ctx:     ctx,
		delay:   delay,
		query:   query,
		deliver: deliver,
	}
}

// Input records a keystroke and returns its generation.
func (d *Debouncer[T]) Input(input string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen, input) })
	return gen
}

// Flush runs the pending input now instead of waiting for the delay.
func (d *Debouncer[T]) Flush(input string) uint64 {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.fire(gen, input)
	return gen
}

// Stop cancels any scheduled query and marks every outstanding result as stale.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer[T]) Latest() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

func (d *Debouncer[T]) fire(gen uint64, input string) {
	if !d.current(gen) {
		return
	}
	value, err := d.query(d.ctx, input)

	// checked and delivered under the lock so a newer input cannot slip in between
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return
	}
	d.deliver(Result[T]{Gen: gen, Input: input, Value: value, Err: err})
}

func (d *Debouncer[T]) current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gen == d.gen
}
