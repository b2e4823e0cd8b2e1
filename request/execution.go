// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"net/http"
	urlpkg "net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/jhuckaby/pixl-request/timing"
)

// ErrCanceled is the cause recorded on an execution's context when the
// execution is canceled through its Cancel method. Test for it with
// errors.Is.
var ErrCanceled = errors.New("pixlrequest/request: execution canceled")

// An Execution represents the state of a single Plan execution.
//
// When an HTTP request plan execution is requested, an Execution is
// created for it. The Execution is updated as the plan execution
// progresses (for example when the HTTP response becomes available,
// or when a retry or redirect starts a fresh attempt) and is ultimately
// returned as the return value of the plan execution.
//
// Policies and event handlers may set values on an Execution using its
// SetValue method and read them back using the Value method. However,
// they should treat the structure's exported field values as immutable
// and leave them unmodified, as the execution state is vital to the
// correct functioning of the plan execution logic. Limited exceptions
// to this rule include making reasonable changes to the http.Request
// before it is sent (for example, to support an OAuth or AWS signing
// use case).
type Execution struct {
	// ID is a unique identifier assigned to the execution when it is
	// created. It appears in the executing client's log events and lets
	// callers correlate executions across handlers and policies.
	ID uuid.UUID

	// Plan specifies the HTTP request plan being executed. It is never
	// nil.
	Plan *Plan

	// URL is the target of the current attempt. It starts as the plan's
	// URL and moves to the Location target whenever a redirect is
	// followed.
	URL *urlpkg.URL

	// Host is the Host header override for the current attempt. It
	// starts as the plan's Host and is cleared whenever a redirect is
	// followed, so the header tracks the redirect target. When the
	// executing client substitutes a cached address into an outgoing
	// request, the original hostname is carried on the request's own
	// Host field; Host here is left alone.
	Host string

	// Start is the start time of the HTTP request plan execution. It
	// is assigned a non-zero value when the plan execution starts, and
	// this value remains constant thereafter.
	Start time.Time

	// End is the end time of the HTTP request plan execution. It
	// contains the zero value until the plan execution ends, when it is
	// set to the current time.
	End time.Time

	// Attempt is the zero-based number of the current HTTP request
	// attempt during the plan execution. It is set to zero on the
	// initial attempt and incremented for every retry and every
	// followed redirect.
	Attempt int

	// AttemptTimeouts is the count of the number of times an HTTP
	// request attempt timed out during the execution, whether awaiting
	// the first response byte or awaiting further body data.
	AttemptTimeouts int

	// Retries is the number of retries performed so far: attempts
	// started because a previous attempt failed or returned a retryable
	// status.
	Retries int

	// Redirects is the number of redirects followed so far.
	Redirects int

	// FollowLeft is the live countdown of the plan's redirect budget.
	FollowLeft Budget

	// RetriesLeft is the live countdown of the plan's retry budget.
	RetriesLeft Budget

	// Request specifies the HTTP request made in the current attempt,
	// or already made in the last attempt.
	Request *http.Request

	// Response specifies the HTTP response received in the most recent
	// request attempt. It will be nil if the most recent attempt ended
	// in an error before any response arrived, or if a current attempt
	// is underway, or before the execution starts. Once response
	// headers have been received, Response stays set even if the
	// attempt later ends in an error; in that case Body may be nil or
	// the download may be truncated.
	Response *http.Response

	// Err indicates the error received while making the most recent
	// request attempt. It will be nil if the most recent attempt ended
	// without an error.
	//
	// While an execution is in-flight, Err may fluctuate between nil
	// and various non-nil error values. Once the execution has Ended,
	// Err will not change and has the same value as the error value
	// returned by the executing client.
	Err error

	// Body is the complete response body read, and if applicable
	// decoded, after the final request attempt. It is nil when the plan
	// runs in streaming mode (Plan.Download is set) and nil if the
	// final attempt ended in an error before the body was read.
	Body []byte

	// Downloaded is the number of body bytes written to the plan's
	// Download sink. It is zero in buffered mode.
	Downloaded int64

	// Timing records phase durations and counters for the current
	// attempt plus everything carried over from earlier attempts of
	// this execution. It is never nil.
	Timing *timing.Tracker

	state int32

	// data contains arbitrary user data. The library does not touch
	// this field; event handlers interact with it via the Value and
	// SetValue methods.
	data context.Context

	ctx    context.Context
	cancel context.CancelCauseFunc

	mu                 sync.Mutex
	resolved           bool
	cancelAfterResolve int
}

// NewExecution constructs the execution state for one run of plan p.
// The execution's context is derived from the plan's context and is
// additionally canceled by the execution's Cancel method.
//
// NewExecution is intended for executing clients. Callers of a client
// receive executions, they do not construct them.
func NewExecution(p *Plan) *Execution {
	e := &Execution{
		ID:     uuid.New(),
		Plan:   p,
		Timing: timing.NewTracker(),
	}
	if p != nil {
		e.URL = p.URL
		e.Host = p.Host
		e.FollowLeft = p.Follow
		e.RetriesLeft = p.Retries
		e.ctx, e.cancel = context.WithCancelCause(p.Context())
	} else {
		e.ctx, e.cancel = context.WithCancelCause(context.Background())
	}
	return e
}

// Context returns the execution's context. It is derived from the
// plan's context, so it ends when the plan is canceled or times out,
// and it additionally ends when the execution's Cancel method is
// called. Each request attempt runs under a context derived from this
// one.
func (e *Execution) Context() context.Context {
	return e.ctx
}

// Cancel aborts the execution. The in-flight request attempt, if any,
// is interrupted, any retry wait in progress is cut short, and the
// execution resolves with an abort error.
//
// Cancel may be called from any goroutine at any point in the
// execution's life. Calling Cancel after the execution has resolved is
// a recorded no-op: the terminal outcome never changes once delivered.
func (e *Execution) Cancel() {
	e.mu.Lock()
	if e.resolved {
		e.cancelAfterResolve++
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.cancel(ErrCanceled)
}

// Resolve latches err as the execution's terminal outcome and reports
// whether this call won the latch. The first caller to resolve wins;
// every later call is a no-op returning false, no matter whether it
// carries an error, a success (nil), or arrives from a racing timer or
// cancellation path.
func (e *Execution) Resolve(err error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resolved {
		return false
	}
	e.resolved = true
	e.Err = err
	return true
}

// Resolved reports whether the execution has latched a terminal
// outcome.
func (e *Execution) Resolved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolved
}

// CancelsAfterResolve returns the number of times Cancel was called
// after the execution had already resolved. Such calls are harmless
// no-ops; the counter exists so tests and instrumentation can observe
// them.
func (e *Execution) CancelsAfterResolve() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelAfterResolve
}

// State returns the stage the current request attempt is in.
func (e *Execution) State() State {
	return State(atomic.LoadInt32(&e.state))
}

// SetState records the stage the current request attempt is in. It is
// intended for executing clients; event handlers should treat the
// state as read-only.
func (e *Execution) SetState(s State) {
	atomic.StoreInt32(&e.state, int32(s))
}

// StatusCode returns the status code of the HTTP response from the
// most recent request attempt in the execution. If there is no HTTP
// response, 0 is returned.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the HTTP response headers from the most recent request
// attempt in the execution. If there is no HTTP response, the nil
// header is returned.
//
// A nil return value is always safe for read-only operations, since
// http.Header is a map type. There should never be a reason to write to
// the returned value, since it represents the response headers.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return e.Response.Header
}

// Duration returns the duration of the execution.
//
// If the execution has not yet started, the duration is zero. If the
// execution has Ended, the duration returned is equal to End minus
// Start. Otherwise, it is equal to the current time minus Start. The
// return value is thus monotonically increasing over the life of
// the execution, and becomes static when the execution has ended.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return e.Start != (time.Time{})
}

// Ended indicates whether the execution has ended.
//
// If the return value is false, the execution is still in-flight. If
// the return value is true, then the execution is over, End is a
// non-zero time, and there will be no further changes to the execution.
func (e *Execution) Ended() bool {
	return e.End != (time.Time{})
}

// Timeout indicates whether Err currently contains a non-nil value
// which indicates a timeout. The timeout may be an attempt timeout
// (first-byte or idle), or a plan timeout detected after the most
// recent request attempt.
//
// Note that Timeout may return false even if AttemptTimeouts > 0 (if
// the most recent attempt did not end in a timeout); and it may return
// true even if AttemptTimeouts is zero (if a plan timeout was detected
// after the end of the most recent request attempt).
func (e *Execution) Timeout() bool {
	if e.Err == nil {
		return false
	}

	var t interface{ Timeout() bool }
	if errors.As(e.Err, &t) && t.Timeout() {
		return true
	}

	return errors.Is(e.Err, context.DeadlineExceeded)
}

// JSON decodes the execution's buffered response body into v.
func (e *Execution) JSON(v interface{}) error {
	return json.Unmarshal(e.Body, v)
}

// SetValue allows event handlers to store arbitrary data in the request
// plan execution.
//
// The key must follow the same rules as the key parameter in
// context.WithValue, namely it:
//
// • it may not be nil;
//
// • it must be comparable;
//
// • it should not be of type string or any other built-in type to avoid
// collisions between different event handlers putting data into the
// same request execution.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
