// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timing

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// A Phase identifies one portion of the life of an HTTP request
// attempt. Phases are declared in dependency order: each phase can only
// end after the phase before it has ended, so the exclusive duration of
// a phase is the distance between its end mark and the end mark of the
// nearest preceding phase that was recorded.
type Phase int

const (
	// DNS is the name resolution phase. It is absent when the target
	// host was an IP literal or was served from the address cache.
	DNS Phase = iota
	// Connect is the connection establishment phase, including any TLS
	// handshake. It is absent when an idle connection was reused.
	Connect
	// Send is the request write phase.
	Send
	// Wait is the phase between the end of the request write and the
	// first byte of the response.
	Wait
	// Receive is the response body read phase, measured over the raw
	// bytes from the wire.
	Receive
	// Decompress is the content decoding phase. When the body is
	// decoded while streaming, Receive and Decompress end together and
	// the exclusive decompress duration is zero.
	Decompress
	// phaseSentinel provides the total number of phases typed as a
	// Phase.
	phaseSentinel

	// numPhases provides the total number of phases typed as an int.
	numPhases = int(phaseSentinel)
)

var phaseNames = []string{
	"dns",
	"connect",
	"send",
	"wait",
	"receive",
	"decompress",
}

// Phases returns a slice containing all phases a tracker can record,
// in dependency order.
func Phases() []Phase {
	return []Phase{
		DNS,
		Connect,
		Send,
		Wait,
		Receive,
		Decompress,
	}
}

// Name returns the name of the phase.
func (p Phase) Name() string {
	return phaseNames[int(p)]
}

// String returns the name of the phase.
func (p Phase) String() string {
	return p.Name()
}

// Names of the counters maintained by the request engine. Callers may
// add their own counters under any other name.
const (
	CounterBytesSent     = "bytes_sent"
	CounterBytesReceived = "bytes_received"
	CounterRetries       = "retries"
	CounterRedirects     = "redirects"
	CounterDNSCacheHits  = "dns_cache_hits"
)

// A Tracker records phase end marks and named counters for one HTTP
// request attempt, plus durations and counters carried over from
// earlier attempts of the same logical request.
//
// Phase end marks are recorded relative to the attempt start. Phase
// durations are derived, not stored: Report subtracts each recorded end
// mark from the end mark of the nearest preceding recorded phase and
// clamps the difference at zero, so clock jitter can never produce a
// negative duration.
//
// A Tracker is safe for concurrent use by multiple goroutines. This
// matters because phase marks arrive from transport-owned goroutines
// while counters are bumped from the goroutine driving the request.
type Tracker struct {
	mu           sync.Mutex
	chainStart   time.Time
	attemptStart time.Time
	marked       [numPhases]bool
	ends         [numPhases]time.Duration
	carried      [numPhases]bool
	carry        [numPhases]time.Duration
	counters     map[string]int64
}

// NewTracker constructs a tracker whose attempt, and chain, start now.
//
// For a continuation attempt (a retry or a followed redirect), merge
// the predecessor attempt's report into the new tracker with Merge so
// the chain start, accumulated phase durations, and counters carry
// forward.
func NewTracker() *Tracker {
	now := time.Now()
	return &Tracker{
		chainStart:   now,
		attemptStart: now,
	}
}

// Mark records the end of a phase at the current time. Marking a phase
// twice moves its end mark; phases that never end simply stay absent
// from the report.
func (t *Tracker) Mark(p Phase) {
	d := time.Since(t.attemptStart)
	t.mu.Lock()
	t.marked[p] = true
	t.ends[p] = d
	t.mu.Unlock()
}

// Count adds delta to the named counter.
func (t *Tracker) Count(name string, delta int64) {
	t.mu.Lock()
	if t.counters == nil {
		t.counters = make(map[string]int64)
	}
	t.counters[name] += delta
	t.mu.Unlock()
}

// Counter returns the current value of the named counter.
func (t *Tracker) Counter(name string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counters[name]
}

// Merge folds a predecessor attempt's report into the tracker: the
// chain start is inherited unchanged, the predecessor's phase durations
// are added to the carried durations, and its counters are summed into
// the tracker's counters.
func (t *Tracker) Merge(prev *Report) {
	if prev == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !prev.Started.IsZero() {
		t.chainStart = prev.Started
	}
	for p, d := range prev.Phases {
		t.carried[p] = true
		t.carry[p] += d
	}
	if len(prev.Counters) > 0 && t.counters == nil {
		t.counters = make(map[string]int64, len(prev.Counters))
	}
	for name, v := range prev.Counters {
		t.counters[name] += v
	}
}

// Report computes a snapshot of the tracker: exclusive per-phase
// durations (including carried durations from merged predecessors),
// counters, and the total duration from the chain start until now.
//
// The returned report is an independent copy. The caller owns it and
// the tracker keeps recording unaffected.
func (t *Tracker) Report() *Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := &Report{
		Started:  t.chainStart,
		Total:    time.Since(t.chainStart),
		Phases:   make(map[Phase]time.Duration, numPhases),
		Counters: make(map[string]int64, len(t.counters)),
	}
	var prev time.Duration
	for i := 0; i < numPhases; i++ {
		if !t.marked[i] {
			continue
		}
		d := t.ends[i] - prev
		if d < 0 {
			d = 0
		}
		r.Phases[Phase(i)] = d
		prev = t.ends[i]
	}
	for i := 0; i < numPhases; i++ {
		if t.carried[i] {
			r.Phases[Phase(i)] += t.carry[i]
		}
	}
	for name, v := range t.counters {
		r.Counters[name] = v
	}
	return r
}

// A Report is a finished snapshot of the timing of a logical request:
// exclusive durations for every phase that occurred, named counters,
// and the total duration from the start of the first attempt. Treat a
// report as read-only once obtained.
type Report struct {
	// Started is the start time of the first attempt in the chain.
	Started time.Time
	// Total is the duration from Started until the report was taken.
	Total time.Duration
	// Phases holds the exclusive duration of each phase that was
	// recorded in any attempt of the chain. Phases that never occurred
	// are absent.
	Phases map[Phase]time.Duration
	// Counters holds the named counters summed across the chain.
	Counters map[string]int64
}

// String renders the report in a compact single-line form suitable for
// logs, for example "total=1.2s connect=31ms wait=844ms bytes_received=12480".
func (r *Report) String() string {
	var b strings.Builder
	b.WriteString("total=")
	b.WriteString(r.Total.String())
	for _, p := range Phases() {
		if d, ok := r.Phases[p]; ok {
			b.WriteByte(' ')
			b.WriteString(p.Name())
			b.WriteByte('=')
			b.WriteString(d.String())
		}
	}
	names := make([]string, 0, len(r.Counters))
	for name := range r.Counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteByte(' ')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatInt(r.Counters[name], 10))
	}
	return b.String()
}

// MarshalZerologObject writes the report's total, phase durations, and
// counters as fields of a structured log event.
func (r *Report) MarshalZerologObject(e *zerolog.Event) {
	e.Dur("total", r.Total)
	for _, p := range Phases() {
		if d, ok := r.Phases[p]; ok {
			e.Dur(p.Name(), d)
		}
	}
	for name, v := range r.Counters {
		e.Int64(name, v)
	}
}
