// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pixlrequest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/netip"
	"net/textproto"
	"net/url"

	"github.com/jhuckaby/pixl-request/classify"
	"github.com/jhuckaby/pixl-request/request"
	"github.com/jhuckaby/pixl-request/timeout"
	"github.com/jhuckaby/pixl-request/timing"
)

// An action is the verdict on a finished attempt: surface the outcome,
// start a retry attempt, or start a redirect-following attempt.
type action int

const (
	actionResolve action = iota
	actionRetry
	actionRedirect
)

// sendAndReceive makes one HTTP request attempt: it builds the
// lower-level request from the plan and the execution's current target,
// consults the address cache and the access control list, sends the
// request under the attempt timers, classifies the response, and reads
// the body when the response is to be surfaced.
//
// On return, the execution's Response, Body, and Err fields describe
// the attempt's outcome. For actionRetry the retry budget has already
// been consumed; for actionRedirect the execution's URL already names
// the redirect target.
func (st *execState) sendAndReceive(e *request.Execution) action {
	p := e.Plan
	e.SetState(request.Preparing)

	tos := st.attemptTimeouts(e)

	ctx, cancel := context.WithCancelCause(e.Context())
	defer cancel(nil)

	req, err := p.ToRequest(ctx)
	if err != nil {
		e.Err = &Error{
			Kind: KindBodyDecode,
			Op:   urlErrorOp(p.Method),
			URL:  e.URL.String(),
			Err:  err,
		}
		return actionResolve
	}
	req.URL = e.URL
	req.Host = e.Host

	// Fill in the client's default headers. A header the plan set wins
	// over the default under the same name.
	for k, vs := range st.header {
		ck := textproto.CanonicalMIMEHeaderKey(k)
		if _, ok := req.Header[ck]; !ok {
			req.Header[ck] = append([]string(nil), vs...)
		}
	}

	// Advertise the decodings the registry can transparently reverse,
	// unless the caller pinned their own or turned decoding off.
	if !p.DisableDecompression && req.Header.Get("Accept-Encoding") == "" {
		if ae := st.codecs.AcceptEncoding(); ae != "" {
			req.Header.Set("Accept-Encoding", ae)
		}
	}

	host := e.URL.Hostname()
	if addr, ok := st.cache.Lookup(host); ok {
		if err := st.acl.CheckAddr(addr); err != nil {
			e.Err = &Error{
				Kind: KindAccessDenied,
				Op:   urlErrorOp(p.Method),
				URL:  e.URL.String(),
				Err:  err,
			}
			return actionResolve
		}
		u := *e.URL
		u.Host = joinAddrPort(addr, e.URL.Port(), e.URL.Scheme)
		req.URL = &u
		if req.Host == "" {
			req.Host = e.URL.Host
		}
		e.Timing.Count(timing.CounterDNSCacheHits, 1)
		st.log.Debug().Stringer("id", e.ID).Str("host", host).
			Stringer("addr", addr).Msg("address cache hit")
	}

	fb := &attemptTimer{
		d:      tos.FirstByte,
		cause:  errFirstByteTimeout,
		cancel: cancel,
	}
	defer fb.stop()

	tracker := e.Timing
	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			e.SetState(request.Connecting)
		},
		DNSDone: func(di httptrace.DNSDoneInfo) {
			tracker.Mark(timing.DNS)
			if di.Err != nil || len(di.Addrs) == 0 {
				return
			}
			for _, ia := range di.Addrs {
				a, ok := netip.AddrFromSlice(ia.IP)
				if !ok {
					continue
				}
				if err := st.acl.CheckAddr(a.Unmap()); err != nil {
					cancel(err)
					return
				}
			}
			if a, ok := netip.AddrFromSlice(di.Addrs[0].IP); ok {
				st.cache.Store(host, a.Unmap())
			}
		},
		ConnectStart: func(string, string) {
			e.SetState(request.Connecting)
		},
		GotConn: func(httptrace.GotConnInfo) {
			tracker.Mark(timing.Connect)
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			tracker.Mark(timing.Send)
			if req.ContentLength > 0 {
				tracker.Count(timing.CounterBytesSent, req.ContentLength)
			}
			e.SetState(request.AwaitingHeaders)
			fb.arm()
		},
		GotFirstResponseByte: func() {
			fb.stop()
			tracker.Mark(timing.Wait)
			e.SetState(request.Streaming)
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(ctx, trace))
	e.Request = req

	st.handlers.run(BeforeAttempt, e)
	st.log.Debug().Stringer("id", e.ID).Int("attempt", e.Attempt).
		Str("method", req.Method).Stringer("url", req.URL).
		Msg("attempt start")

	resp, err := st.doer.Do(e.Request)
	fb.stop()
	if err != nil {
		e.Response = nil
		e.Err = st.attemptError(e, ctx, err)
		if st.retryAfterFailure(e) {
			return actionRetry
		}
		return actionResolve
	}

	e.Response = resp
	e.Err = nil

	cls := st.classifier
	if p.RetryOn != nil {
		cls = &classify.Classifier{
			RetryOn:    p.RetryOn,
			RedirectOn: st.classifier.RedirectOn,
		}
	}
	decision := cls.Classify(resp.StatusCode, resp.Header,
		e.FollowLeft.Remaining(), e.RetriesLeft.Remaining())

	if decision == classify.Redirect {
		next := st.redirectTarget(e, resp)
		switch {
		case next == nil:
			// Unusable Location target. Surface the redirect response
			// itself rather than failing the execution.
			decision = classify.Proceed
		default:
			if err := st.acl.CheckHost(next.Hostname()); err != nil {
				st.drainAbandoned(e, ctx, cancel, tos.Idle)
				e.Response = nil
				e.Err = &Error{
					Kind: KindAccessDenied,
					Op:   urlErrorOp(p.Method),
					URL:  next.String(),
					Err:  err,
				}
				return actionResolve
			}
			if derr := st.drainAbandoned(e, ctx, cancel, tos.Idle); derr != nil {
				e.Err = st.attemptError(e, ctx, derr)
			}
			e.FollowLeft = e.FollowLeft.Dec()
			e.Redirects++
			e.Timing.Count(timing.CounterRedirects, 1)
			e.URL = next
			e.Host = ""
			return actionRedirect
		}
	}

	if decision == classify.Retry {
		if derr := st.drainAbandoned(e, ctx, cancel, tos.Idle); derr != nil {
			e.Err = st.attemptError(e, ctx, derr)
		}
		consumeRetry(e)
		return actionRetry
	}

	return st.readBody(e, ctx, cancel, tos)
}

// attemptTimeouts resolves the effective timers for the next attempt:
// the client's timeout policy, overridden per knob by the plan.
func (st *execState) attemptTimeouts(e *request.Execution) timeout.Timeouts {
	tos := st.timeoutPolicy.Timeouts(e)
	if p := e.Plan; p != nil {
		if p.FirstByteTimeout > 0 {
			tos.FirstByte = p.FirstByteTimeout
		}
		if p.IdleTimeout > 0 {
			tos.Idle = p.IdleTimeout
		}
	}
	return tos
}

// attemptError converts a doer or body-read failure into the terminal
// error taxonomy. When the attempt context was canceled, the
// cancellation cause (a timer firing, an access control denial, a
// caller abort) is a better description of what happened than the
// transport's wrapping of it, so the cause wins.
func (st *execState) attemptError(e *request.Execution, ctx context.Context, err error) error {
	cause := err
	if ctx.Err() != nil {
		if c := context.Cause(ctx); c != nil && !errors.Is(err, c) {
			cause = c
		}
	}
	return &Error{
		Kind: classifyKind(cause),
		Op:   urlErrorOp(e.Plan.Method),
		URL:  e.URL.String(),
		Err:  cause,
	}
}

// retryAfterFailure decides whether the attempt error recorded on e
// warrants another attempt, and consumes retry budget if it does.
func (st *execState) retryAfterFailure(e *request.Execution) bool {
	ee, ok := AsError(e.Err)
	if !ok || !ee.Kind.Retryable() {
		return false
	}
	if !e.RetriesLeft.Remaining() {
		return false
	}
	if e.Context().Err() != nil {
		return false
	}
	consumeRetry(e)
	return true
}

func consumeRetry(e *request.Execution) {
	e.RetriesLeft = e.RetriesLeft.Dec()
	e.Retries++
	e.Timing.Count(timing.CounterRetries, 1)
}

// redirectTarget resolves the response's Location header against the
// current target. It returns nil when the header is missing, does not
// parse, or names a scheme the engine cannot reach.
func (st *execState) redirectTarget(e *request.Execution, resp *http.Response) *url.URL {
	loc := resp.Header.Get("Location")
	u, err := e.URL.Parse(loc)
	if err != nil {
		return nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	if u.Host == "" {
		return nil
	}
	return u
}

func joinAddrPort(addr netip.Addr, port, scheme string) string {
	if port == "" {
		if scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return net.JoinHostPort(addr.String(), port)
}
