// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pixlrequest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jhuckaby/pixl-request/acl"
	"github.com/jhuckaby/pixl-request/request"
)

// A Kind classifies the failure mode of an execution error. The kind
// determines whether the engine may retry the failed attempt: timeout
// and transport failures are retryable when retry budget remains, every
// other kind is terminal.
type Kind int

const (
	// KindValidation indicates a malformed plan: a bad method, URL,
	// header name or value. Validation failures are detected before any
	// connection or cache work happens and are never retried.
	KindValidation Kind = iota
	// KindAccessDenied indicates the target address, literal or
	// resolved, was rejected by the client's access control list. Never
	// retried.
	KindAccessDenied
	// KindTimeout indicates an attempt timed out awaiting the first
	// response byte or awaiting further body data, or the whole plan
	// ran out of time. Attempt timeouts are retryable.
	KindTimeout
	// KindTransport indicates a failure to speak HTTP: DNS failure,
	// connection refused or reset, or another socket-level error.
	// Retryable.
	KindTransport
	// KindBodyDecode indicates the request body source or the response
	// body handling failed, including content decoding failures. Never
	// retried.
	KindBodyDecode
	// KindAborted indicates the caller canceled the execution, either
	// through the plan context or the execution's Cancel method.
	// Aborts pre-empt every other outcome and are never retried.
	KindAborted
	// KindHTTPStatus indicates a synthetic status error: the plan has
	// AutoError set and the final response's status fell outside the
	// plan's success predicate. The response and body are still
	// delivered alongside the error.
	KindHTTPStatus
	// kindSentinel provides the total number of kinds typed as a Kind.
	kindSentinel

	// numKinds provides the total number of kinds typed as an int.
	numKinds = int(kindSentinel)
)

var kindNames = []string{
	"validation",
	"access_denied",
	"timeout",
	"transport",
	"body_decode",
	"aborted",
	"http_status",
}

// Kinds returns a slice containing all error kinds an execution can
// fail with.
func Kinds() []Kind {
	ks := make([]Kind, numKinds)
	for i := range ks {
		ks[i] = Kind(i)
	}
	return ks
}

// Name returns the name of the kind.
func (k Kind) Name() string {
	return kindNames[int(k)]
}

// String returns the name of the kind.
func (k Kind) String() string {
	return k.Name()
}

// Retryable reports whether failures of this kind may be retried when
// retry budget remains.
func (k Kind) Retryable() bool {
	return k == KindTimeout || k == KindTransport
}

// An Error is the terminal error of a failed (or, for KindHTTPStatus,
// soft-failed) plan execution. Every non-nil error returned by the
// client's executing methods is of type *Error.
type Error struct {
	// Kind classifies the failure mode.
	Kind Kind
	// Op is the HTTP method of the plan, formatted the way url.Error
	// formats it ("Get", "Post", ...).
	Op string
	// URL is the target of the attempt that failed.
	URL string
	// Status is the response status code which triggered a
	// KindHTTPStatus error. It is zero for every other kind.
	Status int
	// Err is the underlying cause, if any.
	Err error
}

// Error returns a human-readable description of the error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteByte(' ')
	}
	if e.URL != "" {
		fmt.Fprintf(&b, "%q: ", e.URL)
	}
	switch {
	case e.Kind == KindHTTPStatus:
		fmt.Fprintf(&b, "unexpected status %d", e.Status)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.Name())
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the error represents a timeout.
func (e *Error) Timeout() bool {
	return e.Kind == KindTimeout
}

// AsError unwraps err into an *Error if there is one in its chain.
func AsError(err error) (*Error, bool) {
	var ee *Error
	ok := errors.As(err, &ee)
	return ee, ok
}

// IsTimeout reports whether err is an execution error of KindTimeout.
func IsTimeout(err error) bool {
	ee, ok := AsError(err)
	return ok && ee.Kind == KindTimeout
}

// IsAborted reports whether err is an execution error of KindAborted.
func IsAborted(err error) bool {
	ee, ok := AsError(err)
	return ok && ee.Kind == KindAborted
}

// IsAccessDenied reports whether err is an execution error of
// KindAccessDenied.
func IsAccessDenied(err error) bool {
	ee, ok := AsError(err)
	return ok && ee.Kind == KindAccessDenied
}

// timeoutError is the cause recorded when one of the engine's own
// attempt timers fires. It satisfies the Timeout() convention shared
// by net.Error and friends.
type timeoutError string

func (e timeoutError) Error() string { return string(e) }
func (e timeoutError) Timeout() bool { return true }

const (
	errFirstByteTimeout = timeoutError("pixlrequest: timeout awaiting first response byte")
	errIdleTimeout      = timeoutError("pixlrequest: response data flow stalled")
)

// classifyKind maps an underlying cause onto the error taxonomy. It
// looks at wrapped cause errors contained within err, not just err
// itself. It never checks whether an error has a Temporary() function
// that returns true, as the semantics of Temporary() aren't entirely
// clear.
func classifyKind(err error) Kind {
	if errors.Is(err, request.ErrCanceled) || errors.Is(err, context.Canceled) {
		return KindAborted
	}
	if errors.Is(err, acl.ErrDenied) {
		return KindAccessDenied
	}

	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	// Everything else that made it out of the transport is a socket
	// or protocol failure: DNS errors, ECONNREFUSED, ECONNRESET, TLS
	// failures. All retryable.
	return KindTransport
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
