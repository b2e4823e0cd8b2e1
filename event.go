// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pixlrequest

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Client to extend it with custom
// functionality.
type Event int

const (
	// BeforeExecutionStart identifies the event that occurs before the
	// plan execution starts.
	//
	// When Client fires BeforeExecutionStart, the execution is
	// non-nil but the only fields that have been set are the plan, the
	// execution ID, the initial target, and the budgets.
	BeforeExecutionStart Event = iota
	// BeforeAttempt identifies the event that occurs before each
	// individual HTTP request attempt during the plan execution,
	// including attempts started for a retry or a followed redirect.
	//
	// When Client fires BeforeAttempt, the execution's request
	// field is set to the HTTP request that WILL BE sent after all
	// BeforeAttempt handlers have finished.
	//
	// BeforeAttempt Handlers may modify the execution's request, or
	// some of its fields, thus changing the HTTP request that will be
	// sent. However, BeforeAttempt handlers should clone request fields
	// which have reference types (URL and Header) before changing them
	// to avoid side effects.
	BeforeAttempt
	// BeforeReadBody identifies the event that occurs after an HTTP
	// request attempt has resulted in an HTTP response that the engine
	// will surface (as opposed to an error, a retried status, or a
	// followed redirect) but before the response body is read.
	//
	// Note that BeforeReadBody never fires if the HTTP request attempt
	// ended in error or was classified as a retry or redirect, but
	// always fires before the final response's body is consumed,
	// regardless of HTTP response status code and regardless of whether
	// the body is buffered or streamed to a download sink.
	BeforeReadBody
	// AfterAttemptTimeout identifies the event that occurs after an
	// HTTP request attempt failed because of a first-byte or idle
	// timeout.
	//
	// When Client fires AfterAttemptTimeout, the execution's
	// error field is set to the timeout error, and its attempt timeout
	// counter has been incremented.
	AfterAttemptTimeout
	// AfterAttempt identifies the event that occurs after an HTTP
	// request attempt is concluded, regardless of whether it concluded
	// successfully or not.
	//
	// Note that AfterAttempt always fires on every HTTP request
	// attempt, and that it runs before any retry wait or redirect
	// follow-up begins.
	AfterAttempt
	// AfterRedirect identifies the event that occurs after an attempt
	// received a redirect response which the execution will follow. It
	// fires after AfterAttempt and before the next attempt starts.
	//
	// When Client fires AfterRedirect, the execution's URL field
	// already names the redirect target and the redirect counter has
	// been incremented. The redirected attempt's response body has been
	// drained and discarded; it is never surfaced.
	AfterRedirect
	// AfterPlanTimeout identifies the event that occurs after a timeout
	// on the request plan level, not just the request attempt level
	// (i.e. the context deadline on the plan's context is exceeded).
	// A plan timeout can be detected either at the same time as an
	// attempt timeout, or during the retry wait period.
	//
	// Note that AfterPlanTimeout always occurs after AfterAttempt,
	// even if the plan timeout was actually detected at the same time
	// as an attempt timeout.
	AfterPlanTimeout
	// AfterExecutionEnd identifies the event that occurs after the plan
	// execution ends.
	//
	// When Client fires AfterExecutionEnd, the execution has latched
	// its terminal outcome: the end time is set, and the response,
	// body, and error fields will not change again.
	AfterExecutionEnd
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events typed as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeExecutionStart",
	"BeforeAttempt",
	"BeforeReadBody",
	"AfterAttemptTimeout",
	"AfterAttempt",
	"AfterRedirect",
	"AfterPlanTimeout",
	"AfterExecutionEnd",
}

// Events returns a slice containing all events which can occur in an
// HTTP request plan execution by Client, in the order in which
// they would occur.
func Events() []Event {
	return []Event{
		BeforeExecutionStart,
		BeforeAttempt,
		BeforeReadBody,
		AfterAttemptTimeout,
		AfterAttempt,
		AfterRedirect,
		AfterPlanTimeout,
		AfterExecutionEnd,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
