// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math/rand"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jhuckaby/pixl-request/request"
)

// A Waiter specifies how long to wait before retrying a failed HTTP
// request attempt.
//
// Implementations of Waiter must be safe for concurrent use by multiple
// goroutines.
//
// The executing client only consults the Waiter once it has already
// decided, from the response classifier and the error taxonomy, that a
// retry will happen. Waiters choose timing, never eligibility.
type Waiter interface {
	Wait(e *request.Execution) time.Duration
}

// The WaiterFunc type is an adapter to allow the use of ordinary
// functions as retry waiters. If f is a function with the appropriate
// signature, WaiterFunc(f) is a Waiter that calls f.
type WaiterFunc func(e *request.Execution) time.Duration

// Wait calls f(e).
func (f WaiterFunc) Wait(e *request.Execution) time.Duration {
	return f(e)
}

// DefaultWaiter is the default retry wait policy: it does not wait at
// all, so retries recurse immediately. Install an exponential or
// backoff-based waiter on the client when hammering a struggling
// server straight away is not what you want.
var DefaultWaiter Waiter = NewFixedWaiter(0)

// NewFixedWaiter constructs a Waiter that always returns the given
// duration.
//
// Use NewFixedWaiter to obtain a constant retry backoff.
func NewFixedWaiter(d time.Duration) Waiter {
	return fixedWaiter(d)
}

type fixedWaiter time.Duration

func (w fixedWaiter) Wait(_ *request.Execution) time.Duration {
	return time.Duration(w)
}

// NewExpWaiter constructs a Waiter implementing an exponential backoff
// formula with optional jitter.
//
// The formula implemented is the "Full Jitter" approach described in:
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter.
//
// Parameters base and max control the exponential calculation of the
// ceiling:
//
//	ceil := max(base * 2**attempt, max)
//
// Base and max must be positive values, and max must be at least equal
// to base.
//
// Parameter jitter is used to generate a random number between 0 and
// ceil. To make a waiter that does not jitter and simply returns
// ceil on each attempt, pass nil for jitter. Otherwise you may specify
// either a random number generator seed value (as a time.Time, int, or
// int64) or a random number generator (as a rand.Source). If a seed
// value is specified, it is used to seed a random number generator
// for calculating jitter. If a rand.Source is specified, it is used to
// calculate jitter.
func NewExpWaiter(base, max time.Duration, jitter interface{}) Waiter {
	if base < 1 {
		panic("pixlrequest/retry: base must be positive")
	}
	if max < base {
		panic("pixlrequest/retry: max must be at least base")
	}
	r := jitterToRand(jitter)
	return &jitterExpWaiter{
		base: base,
		max:  max,
		rand: r,
	}
}

type jitterExpWaiter struct {
	base time.Duration
	max  time.Duration
	rand *rand.Rand
	lock sync.Mutex
}

func (w *jitterExpWaiter) Wait(e *request.Execution) time.Duration {
	exp := int64(1) << e.Attempt
	if exp < 1 {
		exp = 1<<63 - 1
	}

	ceil := int64(w.base) * exp
	if ceil < int64(w.base) || int64(w.max) < ceil {
		ceil = int64(w.max)
	}

	duration := ceil
	if ceil > 0 {
		w.lock.Lock()
		defer w.lock.Unlock()
		if w.rand != nil {
			duration = w.rand.Int63n(ceil)
		}
	}

	return time.Duration(duration)
}

func jitterToRand(jitter interface{}) *rand.Rand {
	var s rand.Source
	switch j := jitter.(type) {
	case nil:
		return nil
	case time.Time:
		s = rand.NewSource(j.UnixNano())
	case int:
		s = rand.NewSource(int64(j))
	case int64:
		s = rand.NewSource(j)
	case *rand.Rand:
		if j == nil {
			panic("pixlrequest/retry: jitter may not be a typed nil")
		}
		return j
	case rand.Source:
		s = j
	default:
		panic("pixlrequest/retry: invalid jitter type")
	}
	return rand.New(s)
}

type backOffKey struct{}

// NewBackOffWaiter adapts any github.com/cenkalti/backoff strategy into
// a Waiter. The strategy function is called once per plan execution to
// obtain a fresh backoff.BackOff, so the stateful backoff progression
// restarts for every logical request while remaining shared across the
// retries within one.
//
// A backoff.Stop return from the strategy is treated as a zero wait:
// whether another retry happens at all is governed by the plan's retry
// budget, not by the wait strategy.
func NewBackOffWaiter(strategy func() backoff.BackOff) Waiter {
	if strategy == nil {
		panic("pixlrequest/retry: nil backoff strategy")
	}
	return &backOffWaiter{strategy: strategy}
}

// NewExpBackOffWaiter constructs a Waiter using the randomized
// exponential backoff implementation from github.com/cenkalti/backoff,
// starting at initial and never exceeding max between attempts.
func NewExpBackOffWaiter(initial, max time.Duration) Waiter {
	if initial < 1 {
		panic("pixlrequest/retry: initial must be positive")
	}
	if max < initial {
		panic("pixlrequest/retry: max must be at least initial")
	}
	return NewBackOffWaiter(func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = max
		return b
	})
}

type backOffWaiter struct {
	strategy func() backoff.BackOff
}

func (w *backOffWaiter) Wait(e *request.Execution) time.Duration {
	b, _ := e.Value(backOffKey{}).(backoff.BackOff)
	if b == nil {
		b = w.strategy()
		e.SetValue(backOffKey{}, b)
	}
	d := b.NextBackOff()
	if d < 0 {
		d = 0
	}
	return d
}
