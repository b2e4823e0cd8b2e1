// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pixlrequest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// An attemptTimer cancels the attempt context with a fixed cause if it
// is not stopped within d of being armed. The first-byte timer arms
// when the request write finishes and stops when the first response
// byte arrives.
type attemptTimer struct {
	d      time.Duration
	cause  error
	cancel context.CancelCauseFunc

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func (t *attemptTimer) arm() {
	if t.d <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.timer != nil {
		return
	}
	t.timer = time.AfterFunc(t.d, func() {
		t.cancel(t.cause)
	})
}

func (t *attemptTimer) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// An idleWatchdog cancels the attempt context when no response data
// arrives for a full period. It works as a dead man's switch: each
// arriving chunk sets the touched flag, and when the timer fires it
// swaps the flag down. Finding the flag up means data flowed during
// the period and the watchdog re-arms.
type idleWatchdog struct {
	period  time.Duration
	cancel  context.CancelCauseFunc
	touched atomic.Bool

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// startIdleWatchdog arms a watchdog with the given period. A
// non-positive period disables the watchdog; the nil result is safe to
// touch and stop.
func startIdleWatchdog(period time.Duration, cancel context.CancelCauseFunc) *idleWatchdog {
	if period <= 0 {
		return nil
	}
	w := &idleWatchdog{period: period, cancel: cancel}
	w.timer = time.AfterFunc(period, w.tick)
	return w
}

func (w *idleWatchdog) tick() {
	// A chunk that lands concurrently with the timer firing counts as
	// flow, not as a timeout: Swap wins the tie for the reader.
	if !w.touched.Swap(false) {
		w.cancel(errIdleTimeout)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		w.timer.Reset(w.period)
	}
}

func (w *idleWatchdog) touch() {
	if w != nil {
		w.touched.Store(true)
	}
}

func (w *idleWatchdog) stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.timer.Stop()
}
