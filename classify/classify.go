// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package classify

import (
	"net/http"
)

// A Decision is the verdict on a received HTTP response: surface it,
// retry the request, or follow the redirect it describes.
type Decision int

const (
	// Proceed means the response is the outcome of the logical request
	// and should be surfaced to the caller.
	Proceed Decision = iota
	// Retry means the request should be attempted again.
	Retry
	// Redirect means the request should be re-issued against the URL
	// named by the response's Location header.
	Redirect
)

var decisionNames = []string{
	"Proceed",
	"Retry",
	"Redirect",
}

// Name returns the name of the decision.
func (d Decision) Name() string {
	return decisionNames[int(d)]
}

// String returns the name of the decision.
func (d Decision) String() string {
	return d.Name()
}

// A StatusPredicate reports whether an HTTP status code belongs to some
// set of interest, for example the set of retryable statuses or the set
// of statuses counted as success.
type StatusPredicate func(status int) bool

// Range constructs a predicate matching every status from lo to hi
// inclusive.
func Range(lo, hi int) StatusPredicate {
	return func(status int) bool {
		return lo <= status && status <= hi
	}
}

// Codes constructs a predicate matching exactly the listed status
// codes.
func Codes(codes ...int) StatusPredicate {
	set := make(map[int]struct{}, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return func(status int) bool {
		_, ok := set[status]
		return ok
	}
}

// And composes a predicate which is true only when both p and q are
// true.
func (p StatusPredicate) And(q StatusPredicate) StatusPredicate {
	return func(status int) bool {
		return p(status) && q(status)
	}
}

// Or composes a predicate which is true when either p or q is true.
func (p StatusPredicate) Or(q StatusPredicate) StatusPredicate {
	return func(status int) bool {
		return p(status) || q(status)
	}
}

// Not composes the negation of p.
func (p StatusPredicate) Not() StatusPredicate {
	return func(status int) bool {
		return !p(status)
	}
}

// DefaultRetry is the default set of retryable statuses: every server
// error status (500 through 599).
var DefaultRetry = Range(500, 599)

// DefaultSuccess is the default set of statuses counted as success
// when synthetic status errors are enabled on a plan: every 2xx and
// 3xx status.
var DefaultSuccess = Range(200, 399)

// Redirectable reports whether status is one of the redirect statuses
// the engine follows: 301, 302, 307 and 308.
//
// 303 is deliberately excluded. Following it faithfully requires
// rewriting the method to GET and discarding the body, and the engine
// carries method and body across redirects unchanged.
func Redirectable(status int) bool {
	switch status {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}

// A Classifier decides what to do with a received HTTP response. It is
// pure decision logic: it performs no I/O and consumes only the status
// code, the response header, and the remaining budget flags handed to
// it.
//
// The zero value classifies with DefaultRetry and Redirectable. A
// Classifier is safe for concurrent use by multiple goroutines.
type Classifier struct {
	// RetryOn is the set of statuses that warrant a retry. If RetryOn
	// is nil, DefaultRetry is used.
	RetryOn StatusPredicate
	// RedirectOn is the set of statuses treated as followable
	// redirects. If RedirectOn is nil, Redirectable is used.
	RedirectOn StatusPredicate
}

// Default is a classifier with default settings.
var Default = &Classifier{}

// Classify returns the verdict on a response with the given status and
// header. Parameter follow indicates whether the logical request still
// has redirect budget remaining, and retry whether it still has retry
// budget remaining.
//
// Redirect takes priority over Retry, which takes priority over
// Proceed. A redirect verdict additionally requires a non-empty
// Location header; a redirect status without one falls through to the
// retry and proceed checks.
func (c *Classifier) Classify(status int, header http.Header, follow, retry bool) Decision {
	if follow && c.redirectOn()(status) && header.Get("Location") != "" {
		return Redirect
	}
	if retry && c.retryOn()(status) {
		return Retry
	}
	return Proceed
}

func (c *Classifier) retryOn() StatusPredicate {
	if c.RetryOn != nil {
		return c.RetryOn
	}
	return DefaultRetry
}

func (c *Classifier) redirectOn() StatusPredicate {
	if c.RedirectOn != nil {
		return c.RedirectOn
	}
	return Redirectable
}
