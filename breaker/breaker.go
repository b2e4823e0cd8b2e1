// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package breaker wraps an HTTP doer in a circuit breaker, so a
// misbehaving host is cut off for a cool-down window instead of being
// hammered by every retry the engine is willing to make.
package breaker

import (
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"github.com/jhuckaby/pixl-request/classify"
)

// A Doer sends an HTTP request and returns an HTTP response, in the
// manner of http.Client. The root package's Client.HTTPDoer field
// accepts any implementation of this interface.
type Doer interface {
	Do(r *http.Request) (*http.Response, error)
}

// errStatusFailure marks a response whose status counts against the
// breaker even though the round trip itself succeeded. It is
// intercepted and unwrapped before returning to the caller, so the
// response is never swallowed.
var errStatusFailure = errors.New("pixlrequest/breaker: failure status")

// A BreakerDoer is a Doer wrapped in a gobreaker circuit breaker.
type BreakerDoer struct {
	next    Doer
	cb      *gobreaker.CircuitBreaker[*http.Response]
	failure classify.StatusPredicate
}

// NewDoer wraps next in a circuit breaker with the given gobreaker
// settings. Responses whose status falls in failure count against the
// breaker without being swallowed: the caller still receives them. A
// nil failure predicate counts every 5xx status.
//
// While the circuit is open, Do fails fast with an error satisfying
// errors.Is(err, gobreaker.ErrOpenState). The root package's taxonomy
// classifies that error as a transport failure, so an execution with
// retry budget and a suitable wait policy can ride out the open
// window.
func NewDoer(next Doer, st gobreaker.Settings, failure classify.StatusPredicate) *BreakerDoer {
	if next == nil {
		panic("pixlrequest/breaker: nil doer")
	}
	if failure == nil {
		failure = classify.DefaultRetry
	}
	return &BreakerDoer{
		next:    next,
		cb:      gobreaker.NewCircuitBreaker[*http.Response](st),
		failure: failure,
	}
}

// Do sends the request through the circuit breaker.
func (d *BreakerDoer) Do(r *http.Request) (*http.Response, error) {
	resp, err := d.cb.Execute(func() (*http.Response, error) {
		resp, err := d.next.Do(r)
		if err != nil {
			return nil, err
		}
		if d.failure(resp.StatusCode) {
			return resp, errStatusFailure
		}
		return resp, nil
	})
	if errors.Is(err, errStatusFailure) {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// State returns the circuit breaker's current state.
func (d *BreakerDoer) State() gobreaker.State {
	return d.cb.State()
}

// Counts returns the circuit breaker's internal counts.
func (d *BreakerDoer) Counts() gobreaker.Counts {
	return d.cb.Counts()
}

// CloseIdleConnections invokes the same method on the wrapped doer, if
// it has one.
func (d *BreakerDoer) CloseIdleConnections() {
	if ic, ok := d.next.(interface{ CloseIdleConnections() }); ok {
		ic.CloseIdleConnections()
	}
}
