// Package search implements debounced, latest-wins autocomplete over the CRM's
// text search.
package search

import (
	"context"
	"sync"
	"time"
)

// Debouncer runs at most one pending function after a quiet period. Every
// Schedule stops the previous timer and cancels the previous run's context
// before arming a new one, so a slow earlier run can see it was superseded.
type Debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule arms fn to run after the quiet period with a context derived from
// parent. The returned context is the one fn will receive; it is cancelled
// when a later Schedule or Stop supersedes it.
func (d *Debouncer) Schedule(parent context.Context, fn func(ctx context.Context)) context.Context {
	ctx, cancel := context.WithCancel(parent)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.cancel = cancel
	d.timer = time.AfterFunc(d.delay, func() {
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
	return ctx
}

// Stop drops the pending run, if any, and cancels the running one.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
