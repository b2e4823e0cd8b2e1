// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pixlrequest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpguts"

	"github.com/jhuckaby/pixl-request/acl"
	"github.com/jhuckaby/pixl-request/classify"
	"github.com/jhuckaby/pixl-request/codec"
	"github.com/jhuckaby/pixl-request/dnscache"
	"github.com/jhuckaby/pixl-request/request"
	"github.com/jhuckaby/pixl-request/retry"
	"github.com/jhuckaby/pixl-request/timeout"
	"github.com/jhuckaby/pixl-request/timing"
)

// An HTTPDoer implements a Do method in the same manner as the GoLang
// standard library http.Client from the net/http package.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response.
	//
	// The Do method must follow the contract documented on the GoLang
	// standard library http.Client from the net/http package, with one
	// addition: it should not follow redirects on its own (see
	// NoFollow), because the executing client classifies and follows
	// redirects itself under the plan's Follow budget.
	Do(r *http.Request) (*http.Response, error)
}

var emptyHandlers = HandlerGroup{}

// A Client is a reliable HTTP client. Its zero value is a valid
// configuration.
//
// The zero value client uses DefaultDoer as the HTTPDoer,
// timeout.DefaultPolicy as the timeout policy, retry.DefaultWaiter as
// the retry wait policy, classify.Default as the response classifier,
// the process-wide (disabled) dnscache.DefaultCache, an allow-all
// access control list, codec.DefaultRegistry for content decoding, an
// empty handler group, and no logging.
//
// Client's HTTPDoer typically has internal state (cached TCP
// connections) so Client instances should be reused instead of created
// as needed. Client is safe for concurrent use by multiple goroutines.
//
// On top of the HTTP request features provided by the HTTPDoer, Client
// adds the following features:
//
// • Client retries failed request attempts within the plan's retry
// budget, pausing between attempts per a customizable wait policy;
//
// • Client follows redirect responses within the plan's redirect
// budget, carrying the method and body to the new target unchanged;
//
// • Client bounds each attempt with a first-byte timer and an idle
// watchdog using a customizable timeout policy;
//
// • Client caches resolved addresses, filters target addresses through
// an access control list, and transparently decodes compressed
// response bodies;
//
// • Client records a per-phase timing breakdown of the whole attempt
// chain;
//
// • Client invokes user-provided handler functions at designated
// plug-in points within the attempt loop, allowing new features to be
// mixed in from outside libraries; and
//
// • Client implements the pixlrequest.Executor interface.
//
// Client's HTTP methods should feel familiar to anyone who has used the
// Go standard HTTP client (http.Client). The methods use the same
// names, and follow the same rough parameter schema, as the Go standard
// client. The main differences are:
//
// • instead of consuming an http.Request, which is only suitable for
// making a one-off request attempt, Client.Do consumes a request.Plan
// which is suitable for making multiple attempts if necessary (the plan
// execution logic converts the plan into http.Request as needed); and
//
// • instead of producing an http.Response, all of Client's HTTP methods
// return a request.Execution, which contains metadata about the plan
// execution, the timing breakdown, and the fully-buffered (or fully
// streamed) response body.
type Client struct {
	// HTTPDoer specifies the mechanics of sending HTTP requests and
	// receiving responses.
	//
	// If HTTPDoer is nil, DefaultDoer is used. A custom doer should
	// not follow redirects itself; see NoFollow.
	HTTPDoer HTTPDoer
	// Header contains default headers added to every request attempt
	// the client makes. A header the plan itself sets wins over the
	// default under the same name.
	Header http.Header
	// TimeoutPolicy specifies how to set the first-byte and idle
	// timeouts on individual request attempts.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// WaitPolicy decides how long to pause after a failed attempt
	// before retrying.
	//
	// If WaitPolicy is nil, retry.DefaultWaiter is used and retries
	// recurse immediately.
	WaitPolicy retry.Waiter
	// Classifier decides whether a received response should be
	// surfaced, retried, or followed as a redirect.
	//
	// If Classifier is nil, classify.Default is used.
	Classifier *classify.Classifier
	// Cache is the address cache consulted before, and populated
	// after, name resolution.
	//
	// If Cache is nil, the process-wide dnscache.DefaultCache is used,
	// whose caching is off until its TTL is raised.
	Cache *dnscache.Cache
	// ACL restricts the IP addresses the client may connect to. Both
	// literal target addresses and every resolved address are checked.
	//
	// If ACL is nil, everything is permitted.
	ACL *acl.ACL
	// Codecs maps Content-Encoding tokens to response body decoders.
	//
	// If Codecs is nil, codec.DefaultRegistry is used.
	Codecs *codec.Registry
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during execution of a request plan.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// Logger receives structured debug, warn, and error events for
	// executions, attempts, retries, and redirects.
	//
	// If Logger is nil, nothing is logged.
	Logger *zerolog.Logger
}

// Do executes an HTTP request plan and returns the results, following
// the timeout, wait, classification, caching, and access control
// policies set on Client.
//
// The result returned is the result after the final HTTP request
// attempt made during the plan execution. An attempt ends the
// execution when it produces a non-retryable error, exhausts the retry
// budget, or produces a response that is neither retried nor followed.
// Redirect responses are followed within the plan's Follow budget;
// once the budget is exhausted, the redirect response itself is
// surfaced, unmodified.
//
// An error is returned if the final attempt resulted in an error, and
// any returned error is of type *Error. The Execution returned is
// never nil; when an error is returned, the Execution's Err field
// references the same error. A non-2XX status code does not by itself
// produce an error, unless the plan sets AutoError, in which case a
// KindHTTPStatus error is returned alongside the fully delivered
// response and body.
//
// Exactly one terminal outcome is delivered per call, no matter how
// timers, transport errors, and cancellation race: the first resolution
// wins and every later one is suppressed.
//
// For simple use cases, the Get, Head, Post, PostForm, Put, and Delete
// methods may prove easier to use than Do.
func (c *Client) Do(p *request.Plan) (*request.Execution, error) {
	st := c.state()
	e := request.NewExecution(p)

	st.handlers.run(BeforeExecutionStart, e)
	e.Start = time.Now()

	if err := validatePlan(p); err != nil {
		return st.finish(e, err)
	}
	if err := st.acl.CheckHost(p.URL.Hostname()); err != nil {
		return st.finish(e, &Error{
			Kind: KindAccessDenied,
			Op:   urlErrorOp(p.Method),
			URL:  p.URL.String(),
			Err:  err,
		})
	}

	st.log.Debug().Stringer("id", e.ID).Str("method", p.Method).
		Stringer("url", e.URL).Stringer("follow", p.Follow).
		Stringer("retries", p.Retries).Msg("execution start")

RetryLoop:
	for {
		verdict := st.sendAndReceive(e)
		if e.Timeout() {
			e.AttemptTimeouts++
			st.handlers.run(AfterAttemptTimeout, e)
		}
		st.handlers.run(AfterAttempt, e)

		if verdict == actionResolve {
			if p.Context().Err() == context.DeadlineExceeded {
				st.handlers.run(AfterPlanTimeout, e)
			}
			break
		}

		if done, planTimeout := st.interrupted(e); done {
			if planTimeout {
				st.handlers.run(AfterPlanTimeout, e)
			}
			break
		}

		if verdict == actionRedirect {
			st.handlers.run(AfterRedirect, e)
			st.log.Debug().Stringer("id", e.ID).Stringer("url", e.URL).
				Int("redirects", e.Redirects).Msg("following redirect")
			nextAttempt(e)
			continue
		}

		// verdict == actionRetry
		wait := st.waiter.Wait(e)
		st.log.Warn().Stringer("id", e.ID).Err(e.Err).
			Int("status", e.StatusCode()).Dur("wait", wait).
			Stringer("retries_left", e.RetriesLeft).Msg("retrying attempt")
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-e.Context().Done():
				timer.Stop()
				if _, planTimeout := st.interrupted(e); planTimeout {
					st.handlers.run(AfterPlanTimeout, e)
				}
				break RetryLoop
			}
		}
		nextAttempt(e)
	}

	return st.finishLatched(e)
}

// Get issues a GET to the specified URL, using the same policies
// followed by Do.
//
// To make a request plan with custom headers, use request.NewPlan and
// Client.Do.
func (c *Client) Get(url string) (*request.Execution, error) {
	return Get(c, url)
}

// Head issues a HEAD to the specified URL, using the same policies
// followed by Do.
//
// To make a request plan with custom headers, use request.NewPlan and
// Client.Do.
func (c *Client) Head(url string) (*request.Execution, error) {
	return Head(c, url)
}

// Post issues a POST to the specified URL, using the same policies
// followed by Do.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.NewPlan and request.BodyBytes, namely:
// string; []byte; io.Reader; and io.ReadCloser.
//
// To make a request plan with custom headers, use request.NewPlan and
// Client.Do.
func (c *Client) Post(url, contentType string, body interface{}) (*request.Execution, error) {
	return Post(c, url, contentType, body)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
// To set other headers, use request.NewPlan and Client.Do.
func (c *Client) PostForm(url string, data url.Values) (*request.Execution, error) {
	return PostForm(c, url, data)
}

// Put issues a PUT to the specified URL, using the same policies
// followed by Do.
//
// The body parameter accepts the same types as Post.
func (c *Client) Put(url, contentType string, body interface{}) (*request.Execution, error) {
	return Put(c, url, contentType, body)
}

// Delete issues a DELETE to the specified URL, using the same policies
// followed by Do.
func (c *Client) Delete(url string) (*request.Execution, error) {
	return Delete(c, url)
}

// CloseIdleConnections invokes the same method on the client's
// underlying HTTPDoer.
//
// If the HTTPDoer has no CloseIdleConnections method, this method does
// nothing.
func (c *Client) CloseIdleConnections() {
	doer := c.HTTPDoer
	if doer == nil {
		doer = DefaultDoer
	}
	if ic, ok := doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

// execState bundles the client's resolved policies for the duration of
// one Do call, so nil fields are defaulted exactly once per execution.
type execState struct {
	doer          HTTPDoer
	header        http.Header
	timeoutPolicy timeout.Policy
	waiter        retry.Waiter
	classifier    *classify.Classifier
	cache         *dnscache.Cache
	acl           *acl.ACL
	codecs        *codec.Registry
	handlers      *HandlerGroup
	log           zerolog.Logger
}

func (c *Client) state() *execState {
	st := &execState{
		doer:          c.HTTPDoer,
		header:        c.Header,
		timeoutPolicy: c.TimeoutPolicy,
		waiter:        c.WaitPolicy,
		classifier:    c.Classifier,
		cache:         c.Cache,
		acl:           c.ACL,
		codecs:        c.Codecs,
		handlers:      c.Handlers,
		log:           zerolog.Nop(),
	}
	if st.doer == nil {
		st.doer = DefaultDoer
	}
	if st.timeoutPolicy == nil {
		st.timeoutPolicy = timeout.DefaultPolicy
	}
	if st.waiter == nil {
		st.waiter = retry.DefaultWaiter
	}
	if st.classifier == nil {
		st.classifier = classify.Default
	}
	if st.cache == nil {
		st.cache = dnscache.DefaultCache
	}
	if st.codecs == nil {
		st.codecs = codec.DefaultRegistry
	}
	if st.handlers == nil {
		st.handlers = &emptyHandlers
	}
	if c.Logger != nil {
		st.log = *c.Logger
	}
	return st
}

// interrupted reports whether the execution's context has ended and, if
// it has, records the corresponding terminal error on e. The second
// return value reports whether the context ended because the plan's
// deadline was exceeded.
func (st *execState) interrupted(e *request.Execution) (done, planTimeout bool) {
	ctx := e.Context()
	if ctx.Err() == nil {
		return false, false
	}
	cause := context.Cause(ctx)
	if cause == nil {
		cause = ctx.Err()
	}
	e.Response = nil
	e.Body = nil
	e.Err = &Error{
		Kind: classifyKind(cause),
		Op:   urlErrorOp(e.Plan.Method),
		URL:  e.URL.String(),
		Err:  cause,
	}
	return true, errors.Is(cause, context.DeadlineExceeded)
}

func (st *execState) finish(e *request.Execution, err error) (*request.Execution, error) {
	e.Err = err
	return st.finishLatched(e)
}

func (st *execState) finishLatched(e *request.Execution) (*request.Execution, error) {
	e.End = time.Now()
	e.SetState(request.Done)
	e.Resolve(e.Err)
	st.logOutcome(e)
	st.handlers.run(AfterExecutionEnd, e)
	return e, e.Err
}

func (st *execState) logOutcome(e *request.Execution) {
	rep := e.Timing.Report()
	if ee, ok := AsError(e.Err); ok && ee.Kind != KindHTTPStatus {
		st.log.Error().Stringer("id", e.ID).Err(e.Err).
			Str("kind", ee.Kind.Name()).Object("timing", rep).
			Msg("execution failed")
		return
	}
	st.log.Debug().Stringer("id", e.ID).Int("status", e.StatusCode()).
		Object("timing", rep).Msg("execution complete")
}

// nextAttempt tears the finished attempt's state down and rolls the
// timing tracker over, carrying the chain start, accumulated phase
// durations, and counters into the new attempt.
func nextAttempt(e *request.Execution) {
	prev := e.Timing.Report()
	t := timing.NewTracker()
	t.Merge(prev)
	e.Timing = t
	e.Response = nil
	e.Err = nil
	e.Body = nil
	e.Attempt++
	e.SetState(request.Preparing)
}

// validatePlan vets the plan before any cache, access control, or
// transport work happens. A header name with an embedded space, for
// example, fails here, synchronously, with no connection ever opened.
func validatePlan(p *request.Plan) error {
	if p == nil {
		panic("pixlrequest: nil plan")
	}
	fail := func(format string, args ...interface{}) error {
		u := ""
		if p.URL != nil {
			u = p.URL.String()
		}
		return &Error{
			Kind: KindValidation,
			Op:   urlErrorOp(p.Method),
			URL:  u,
			Err:  fmt.Errorf(format, args...),
		}
	}
	if p.URL == nil {
		return fail("plan has no URL")
	}
	if p.URL.Scheme != "http" && p.URL.Scheme != "https" {
		return fail("unsupported scheme %q", p.URL.Scheme)
	}
	if p.URL.Host == "" {
		return fail("missing host in %q", p.URL.String())
	}
	if p.Method != "" && !request.ValidMethod(p.Method) {
		return fail("invalid method %q", p.Method)
	}
	if len(p.Body) > 0 && p.Source != nil {
		return fail("plan sets both Body and Source")
	}
	if p.Host != "" && !httpguts.ValidHostHeader(p.Host) {
		return fail("invalid host %q", p.Host)
	}
	for name, values := range p.Header {
		if !httpguts.ValidHeaderFieldName(name) {
			return fail("invalid header name %q", name)
		}
		for _, v := range values {
			if !httpguts.ValidHeaderFieldValue(v) {
				return fail("invalid value for header %q", name)
			}
		}
	}
	return nil
}
