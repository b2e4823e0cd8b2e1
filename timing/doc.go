// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package timing measures the phases of HTTP request attempts.

A Tracker belongs to one request attempt. The request engine marks the
end of each phase as the attempt progresses (name resolution, connect,
request write, first response byte, body read, content decoding) and
bumps named counters such as bytes sent and received. When an attempt is
continued by a retry or a followed redirect, the predecessor's finished
Report is merged into the next attempt's tracker, so the final Report
covers the whole logical request: the total spans the chain from the
first attempt's start, phase durations accumulate, and counters sum.

Durations are derived by subtracting consecutive end marks in phase
dependency order, clamped at zero. A phase that did not occur (DNS on a
cache hit, connect on a reused connection) is simply absent from the
report rather than reported as zero.
*/
package timing
