// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhuckaby/pixl-request/request"
)

func TestPolicyFunc(t *testing.T) {
	var captured *request.Execution
	f := PolicyFunc(func(e *request.Execution) Timeouts {
		captured = e
		return Timeouts{FirstByte: time.Second, Idle: time.Minute}
	})
	e := &request.Execution{}

	tos := f.Timeouts(e)

	assert.Equal(t, Timeouts{FirstByte: time.Second, Idle: time.Minute}, tos)
	assert.Same(t, e, captured)
}

func TestDefaultPolicy(t *testing.T) {
	tos := DefaultPolicy.Timeouts(&request.Execution{})

	assert.Equal(t, 30*time.Second, tos.FirstByte)
	assert.Equal(t, time.Duration(0), tos.Idle)
}

func TestDisabled(t *testing.T) {
	assert.Equal(t, Timeouts{}, Disabled.Timeouts(&request.Execution{}))
}

func TestFixed(t *testing.T) {
	p := Fixed(time.Second, 100*time.Millisecond)

	for attempt := 0; attempt < 3; attempt++ {
		tos := p.Timeouts(&request.Execution{Attempt: attempt})
		assert.Equal(t, time.Second, tos.FirstByte)
		assert.Equal(t, 100*time.Millisecond, tos.Idle)
	}
}

func TestAdaptive(t *testing.T) {
	usual := Timeouts{FirstByte: 200 * time.Millisecond}
	after1 := Timeouts{FirstByte: time.Second}
	after2 := Timeouts{FirstByte: 10 * time.Second}
	p := Adaptive(usual, after1, after2)

	timedOut := func(attemptTimeouts int) *request.Execution {
		return &request.Execution{
			AttemptTimeouts: attemptTimeouts,
			Err:             timeoutErrForTest{},
		}
	}

	t.Run("usual when previous attempt did not time out", func(t *testing.T) {
		assert.Equal(t, usual, p.Timeouts(&request.Execution{}))
		assert.Equal(t, usual, p.Timeouts(&request.Execution{AttemptTimeouts: 2}))
	})
	t.Run("escalates per timeout count", func(t *testing.T) {
		assert.Equal(t, after1, p.Timeouts(timedOut(1)))
		assert.Equal(t, after2, p.Timeouts(timedOut(2)))
	})
	t.Run("sticks at the last rung", func(t *testing.T) {
		assert.Equal(t, after2, p.Timeouts(timedOut(3)))
		assert.Equal(t, after2, p.Timeouts(timedOut(17)))
	})
	t.Run("no after values", func(t *testing.T) {
		q := Adaptive(usual)
		assert.Equal(t, usual, q.Timeouts(timedOut(5)))
	})
}

type timeoutErrForTest struct{}

func (timeoutErrForTest) Error() string { return "first byte too slow" }
func (timeoutErrForTest) Timeout() bool { return true }
