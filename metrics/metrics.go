// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package metrics publishes plan execution outcomes to Prometheus
// through the root package's event handler mechanism. The package
// registers collectors; it never opens a listener, so exposition is
// the caller's business (typically promhttp).
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	pixlrequest "github.com/jhuckaby/pixl-request"
	"github.com/jhuckaby/pixl-request/request"
	"github.com/jhuckaby/pixl-request/timing"
)

// A Handler observes plan executions and records them as Prometheus
// metrics. It implements the root package's Handler interface; wire it
// into a client with Install.
type Handler struct {
	inflight   prometheus.Gauge
	executions *prometheus.CounterVec
	attempts   prometheus.Counter
	timeouts   prometheus.Counter
	retries    prometheus.Counter
	redirects  prometheus.Counter
	duration   prometheus.Histogram
	phases     *prometheus.HistogramVec
}

// New creates a Handler and registers its collectors with reg. It
// panics if a collector is already registered, following the usual
// MustRegister convention.
func New(reg prometheus.Registerer) *Handler {
	h := &Handler{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pixlrequest_executions_inflight",
			Help: "Number of plan executions currently in flight.",
		}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixlrequest_executions_total",
			Help: "Total plan executions by outcome and status class.",
		}, []string{"outcome", "status_class"}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixlrequest_attempts_total",
			Help: "Total HTTP request attempts.",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixlrequest_attempt_timeouts_total",
			Help: "Total attempts that ended in a first-byte or idle timeout.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixlrequest_retries_total",
			Help: "Total retried attempts.",
		}),
		redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixlrequest_redirects_total",
			Help: "Total followed redirects.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixlrequest_execution_duration_seconds",
			Help:    "Duration of whole plan executions.",
			Buckets: prometheus.DefBuckets,
		}),
		phases: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixlrequest_phase_duration_seconds",
			Help:    "Exclusive duration of each request phase, summed across the attempt chain.",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
	}
	reg.MustRegister(h.inflight, h.executions, h.attempts, h.timeouts,
		h.retries, h.redirects, h.duration, h.phases)
	return h
}

// Install pushes the handler onto the events it observes.
func (h *Handler) Install(g *pixlrequest.HandlerGroup) {
	g.PushBack(pixlrequest.BeforeExecutionStart, h)
	g.PushBack(pixlrequest.AfterAttempt, h)
	g.PushBack(pixlrequest.AfterAttemptTimeout, h)
	g.PushBack(pixlrequest.AfterRedirect, h)
	g.PushBack(pixlrequest.AfterExecutionEnd, h)
}

// Handle records the event. It is safe for concurrent use.
func (h *Handler) Handle(evt pixlrequest.Event, e *request.Execution) {
	switch evt {
	case pixlrequest.BeforeExecutionStart:
		h.inflight.Inc()
	case pixlrequest.AfterAttempt:
		h.attempts.Inc()
	case pixlrequest.AfterAttemptTimeout:
		h.timeouts.Inc()
	case pixlrequest.AfterRedirect:
		h.redirects.Inc()
	case pixlrequest.AfterExecutionEnd:
		h.inflight.Dec()
		h.retries.Add(float64(e.Retries))
		h.executions.WithLabelValues(outcome(e.Err), statusClass(e.StatusCode())).Inc()
		h.duration.Observe(e.Duration().Seconds())
		rep := e.Timing.Report()
		for _, p := range timing.Phases() {
			if d, ok := rep.Phases[p]; ok {
				h.phases.WithLabelValues(p.Name()).Observe(d.Seconds())
			}
		}
	}
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if ee, ok := pixlrequest.AsError(err); ok {
		return ee.Kind.Name()
	}
	return "error"
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "none"
	}
	return strconv.Itoa(status/100) + "xx"
}
