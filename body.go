// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pixlrequest

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/jhuckaby/pixl-request/classify"
	"github.com/jhuckaby/pixl-request/codec"
	"github.com/jhuckaby/pixl-request/request"
	"github.com/jhuckaby/pixl-request/timeout"
	"github.com/jhuckaby/pixl-request/timing"
)

// drainLimit caps how much of a discarded response body is read before
// the connection is closed. Reading a modest remainder lets the
// transport reuse the connection; anything larger is cheaper to
// abandon.
const drainLimit = 256 << 10

// readBody consumes the body of a response that will be surfaced,
// either buffering it into Execution.Body or streaming it to the
// plan's download sink, with the idle watchdog running and content
// decoding applied.
func (st *execState) readBody(e *request.Execution, ctx context.Context, cancel context.CancelCauseFunc, tos timeout.Timeouts) action {
	p := e.Plan
	resp := e.Response

	st.handlers.run(BeforeReadBody, e)

	wd := startIdleWatchdog(tos.Idle, cancel)
	defer wd.stop()

	body := &monitoredReader{r: resp.Body, watchdog: wd, tracker: e.Timing}

	if p.Download != nil {
		return st.streamBody(e, ctx, body)
	}

	data, err := io.ReadAll(body)
	e.Timing.Mark(timing.Receive)
	closeQuietly(resp.Body)
	if err != nil {
		e.Body = nil
		e.Err = st.attemptError(e, ctx, err)
		if st.retryAfterFailure(e) {
			return actionRetry
		}
		return actionResolve
	}

	if dec, ok := st.decoderFor(e); ok && len(data) > 0 {
		decoded, derr := decodeAll(dec, data)
		e.Timing.Mark(timing.Decompress)
		if derr != nil {
			e.Body = nil
			e.Err = &Error{
				Kind: KindBodyDecode,
				Op:   urlErrorOp(p.Method),
				URL:  e.URL.String(),
				Err:  derr,
			}
			return actionResolve
		}
		data = decoded
	}

	e.Body = data
	st.autoError(e)
	return actionResolve
}

// streamBody copies the response body to the plan's download sink
// instead of buffering it. Once any bytes have reached the sink the
// attempt is never retried, because the sink cannot be rewound.
func (st *execState) streamBody(e *request.Execution, ctx context.Context, body *monitoredReader) action {
	p := e.Plan
	resp := e.Response

	if p.Preflight != nil {
		handled, err := p.Preflight(resp, p.Download)
		if err != nil {
			discardTail(body, resp.Body)
			e.Err = &Error{
				Kind: KindBodyDecode,
				Op:   urlErrorOp(p.Method),
				URL:  e.URL.String(),
				Err:  err,
			}
			return actionResolve
		}
		if handled {
			// The hook owns the response from here; nothing is copied
			// to the sink.
			discardTail(body, resp.Body)
			st.autoError(e)
			return actionResolve
		}
	}

	var src io.Reader = body
	var decoding io.Closer
	if dec, ok := st.decoderFor(e); ok {
		rc, err := dec(body)
		if err != nil {
			closeQuietly(resp.Body)
			e.Err = &Error{
				Kind: KindBodyDecode,
				Op:   urlErrorOp(p.Method),
				URL:  e.URL.String(),
				Err:  err,
			}
			return actionResolve
		}
		src = rc
		decoding = rc
	}

	n, err := io.Copy(p.Download, src)
	e.Downloaded = n
	e.Timing.Mark(timing.Receive)
	if decoding != nil {
		if cerr := decoding.Close(); err == nil {
			err = cerr
		}
		e.Timing.Mark(timing.Decompress)
	}
	closeQuietly(resp.Body)

	if err != nil {
		switch {
		case body.err != nil:
			// The wire read failed; the decoder merely relayed it.
			e.Err = st.attemptError(e, ctx, body.err)
		case ctx.Err() == nil && decoding != nil:
			e.Err = &Error{
				Kind: KindBodyDecode,
				Op:   urlErrorOp(p.Method),
				URL:  e.URL.String(),
				Err:  err,
			}
		default:
			e.Err = st.attemptError(e, ctx, err)
		}
		if e.Downloaded == 0 && st.retryAfterFailure(e) {
			return actionRetry
		}
		return actionResolve
	}

	st.autoError(e)
	return actionResolve
}

// decoderFor returns the registered decoder for the response's
// Content-Encoding, if decoding applies. Identity, empty, unknown, and
// stacked encodings all pass through raw.
func (st *execState) decoderFor(e *request.Execution) (codec.Decoder, bool) {
	if e.Plan.DisableDecompression {
		return nil, false
	}
	enc := strings.TrimSpace(e.Response.Header.Get("Content-Encoding"))
	if enc == "" || strings.EqualFold(enc, "identity") {
		return nil, false
	}
	if strings.Contains(enc, ",") {
		return nil, false
	}
	return st.codecs.Decoder(enc)
}

func decodeAll(dec codec.Decoder, data []byte) ([]byte, error) {
	rc, err := dec(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	decoded, err := io.ReadAll(rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

// autoError attaches a synthetic status error when the plan asks for
// one and the final status falls outside the plan's success set. The
// response and body stay on the execution either way.
func (st *execState) autoError(e *request.Execution) {
	p := e.Plan
	if !p.AutoError || e.Response == nil {
		return
	}
	success := p.Success
	if success == nil {
		success = classify.DefaultSuccess
	}
	status := e.Response.StatusCode
	if success(status) {
		return
	}
	e.Err = &Error{
		Kind:   KindHTTPStatus,
		Op:     urlErrorOp(p.Method),
		URL:    e.URL.String(),
		Status: status,
	}
}

// drainAbandoned discards the remainder of a response body that will
// not be surfaced, so the transport can reuse the connection, then
// closes it. The read runs under the attempt's idle timer: a stalled
// drain is cut off rather than outliving the timers the attempt ran
// under. It returns the timer's cause when the drain was cut short.
func (st *execState) drainAbandoned(e *request.Execution, ctx context.Context, cancel context.CancelCauseFunc, idle time.Duration) error {
	resp := e.Response
	if resp == nil || resp.Body == nil {
		return nil
	}
	wd := startIdleWatchdog(idle, cancel)
	body := &monitoredReader{r: resp.Body, watchdog: wd, tracker: e.Timing}
	_, err := io.Copy(io.Discard, io.LimitReader(body, drainLimit))
	wd.stop()
	closeQuietly(resp.Body)
	if err != nil && ctx.Err() != nil {
		return context.Cause(ctx)
	}
	return nil
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}

func discardTail(body io.Reader, c io.Closer) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, drainLimit))
	closeQuietly(c)
}

// A monitoredReader feeds the idle watchdog and the byte counter as
// raw response data flows off the wire. It remembers the wire's first
// read failure, so a copy error surfacing through a decoder can still
// be traced back to the transport.
type monitoredReader struct {
	r        io.Reader
	watchdog *idleWatchdog
	tracker  *timing.Tracker
	err      error
}

func (m *monitoredReader) Read(p []byte) (int, error) {
	n, err := m.r.Read(p)
	if n > 0 {
		m.watchdog.touch()
		m.tracker.Count(timing.CounterBytesReceived, int64(n))
	}
	if err != nil && err != io.EOF && m.err == nil {
		m.err = err
	}
	return n, err
}
