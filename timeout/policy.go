// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/jhuckaby/pixl-request/request"
)

// Timeouts bounds two distinct stretches of a request attempt.
//
// FirstByte bounds the time from the end of the request write to the
// first byte of the response. Idle bounds the gap between consecutive
// chunks of response data once the response has started flowing: it is
// a dead man's switch that only fires when no data at all arrives for
// a full period. A zero value disables the corresponding timer.
type Timeouts struct {
	FirstByte time.Duration
	Idle      time.Duration
}

// A Policy defines a timeout policy which may be plugged into the
// reliable HTTP client (pixlrequest.Client) to direct how to set the
// timeouts for the initial request attempt, as well as for any
// subsequent retries or followed redirects.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeouts returns the timeouts to set on the next HTTP request
	// attempt within the plan execution.
	//
	// Parameter e contains the current state of the HTTP request plan
	// execution.
	Timeouts(e *request.Execution) Timeouts
}

// The PolicyFunc type is an adapter to allow the use of ordinary
// functions as timeout policies. If f is a function with the
// appropriate signature, PolicyFunc(f) is a Policy that calls f.
type PolicyFunc func(e *request.Execution) Timeouts

// Timeouts calls f(e).
func (f PolicyFunc) Timeouts(e *request.Execution) Timeouts {
	return f(e)
}

// DefaultPolicy is the default timeout policy. It allows 30 seconds
// for the first response byte of each attempt and leaves the idle
// timer off.
var DefaultPolicy Policy = Fixed(30*time.Second, 0)

// Disabled is a built-in timeout policy which never times out.
var Disabled Policy = Fixed(0, 0)

// Fixed constructs a timeout policy that uses the same first-byte and
// idle timeout values on every attempt.
//
// Use Fixed to create the typical timeout behavior supported by most
// retrying HTTP client software.
func Fixed(firstByte, idle time.Duration) Policy {
	return policy([]Timeouts{{FirstByte: firstByte, Idle: idle}})
}

// Adaptive constructs a timeout policy that varies the next timeout
// values if the previous attempt timed out.
//
// Use Adaptive if you find the remote service often exhibits one-off
// slow response times that can be cured by quickly timing out and
// retrying, but you also need to protect your application (and the
// remote service) from retry storms and failure if the remote service
// goes through a burst of slowness where most response times during the
// burst are slower than your usual quick timeout.
//
// Parameter usual represents the timeouts the policy will return for an
// initial attempt and for any retry where the immediately preceding
// attempt did not time out.
//
// Parameter after contains the timeouts the policy will return if the
// previous attempt timed out. If this was the first timeout of the
// execution, after[0] is returned; if the second, after[1], and so on.
// If more attempts have timed out within the execution than after has
// elements, then the last element of after is returned.
//
// Consider the following timeout policy:
//
//	p := Adaptive(timeout.Timeouts{FirstByte: 200 * time.Millisecond},
//		timeout.Timeouts{FirstByte: time.Second},
//		timeout.Timeouts{FirstByte: 10 * time.Second})
//
// The policy p will use 200 milliseconds as the usual first-byte
// timeout but if the preceding attempt timed out and was the first
// timeout of the execution, it will use 1 second; and if the previous
// attempt timed out and was not the first attempt, it will use 10
// seconds.
func Adaptive(usual Timeouts, after ...Timeouts) Policy {
	p := make([]Timeouts, 1, 1+len(after))
	p[0] = usual
	return policy(append(p, after...))
}

type policy []Timeouts

func (p policy) Timeouts(e *request.Execution) Timeouts {
	if !e.Timeout() {
		return p[0]
	}

	i := e.AttemptTimeouts
	if i > len(p)-1 {
		i = len(p) - 1
	}

	return p[i]
}
