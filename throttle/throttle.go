// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package throttle wraps an HTTP doer in a token bucket rate limiter,
// bounding the sustained request rate a client puts on a host.
package throttle

import (
	"net/http"

	"golang.org/x/time/rate"
)

// A Doer sends an HTTP request and returns an HTTP response, in the
// manner of http.Client. The root package's Client.HTTPDoer field
// accepts any implementation of this interface.
type Doer interface {
	Do(r *http.Request) (*http.Response, error)
}

// A ThrottledDoer is a Doer gated by a token bucket. Every send waits
// for a token first, respecting the request's context, so caller
// cancellation and the engine's attempt timers interrupt a throttled
// send.
type ThrottledDoer struct {
	next    Doer
	limiter *rate.Limiter
}

// NewDoer wraps next with a token bucket sustaining limit requests per
// second with the given burst capacity.
func NewDoer(next Doer, limit rate.Limit, burst int) *ThrottledDoer {
	if next == nil {
		panic("pixlrequest/throttle: nil doer")
	}
	return &ThrottledDoer{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Do waits for a token, then sends the request through the wrapped
// doer.
func (d *ThrottledDoer) Do(r *http.Request) (*http.Response, error) {
	if err := d.limiter.Wait(r.Context()); err != nil {
		return nil, err
	}
	return d.next.Do(r)
}

// Limiter returns the underlying rate limiter, for inspection or
// runtime adjustment via SetLimit and SetBurst.
func (d *ThrottledDoer) Limiter() *rate.Limiter {
	return d.limiter
}

// CloseIdleConnections invokes the same method on the wrapped doer, if
// it has one.
func (d *ThrottledDoer) CloseIdleConnections() {
	if ic, ok := d.next.(interface{ CloseIdleConnections() }); ok {
		ic.CloseIdleConnections()
	}
}
