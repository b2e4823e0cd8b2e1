// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecution(t *testing.T) {
	p, err := NewPlan("GET", "http://test", nil)
	require.NoError(t, err)
	p.Follow = 3
	p.Retries = Unlimited

	e := NewExecution(p)

	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Same(t, p, e.Plan)
	assert.Same(t, p.URL, e.URL)
	assert.Equal(t, Budget(3), e.FollowLeft)
	assert.Equal(t, Unlimited, e.RetriesLeft)
	assert.NotNil(t, e.Timing)
	assert.NotNil(t, e.Context())
	assert.NoError(t, e.Context().Err())
	assert.False(t, e.Resolved())
	assert.Equal(t, Preparing, e.State())
}

func TestExecutionCancel(t *testing.T) {
	t.Run("ends the context with the abort cause", func(t *testing.T) {
		p, err := NewPlan("GET", "http://test", nil)
		require.NoError(t, err)
		e := NewExecution(p)

		e.Cancel()

		assert.Error(t, e.Context().Err())
		assert.True(t, errors.Is(context.Cause(e.Context()), ErrCanceled))
		assert.Equal(t, 0, e.CancelsAfterResolve())
	})
	t.Run("inherits plan cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p, err := NewPlanWithContext(ctx, "GET", "http://test", nil)
		require.NoError(t, err)
		e := NewExecution(p)

		cancel()

		assert.Error(t, e.Context().Err())
	})
	t.Run("after resolve is a recorded no-op", func(t *testing.T) {
		p, err := NewPlan("GET", "http://test", nil)
		require.NoError(t, err)
		e := NewExecution(p)
		require.True(t, e.Resolve(nil))

		e.Cancel()
		e.Cancel()

		assert.NoError(t, e.Context().Err())
		assert.Equal(t, 2, e.CancelsAfterResolve())
	})
}

func TestExecutionResolve(t *testing.T) {
	t.Run("first resolution wins", func(t *testing.T) {
		e := NewExecution(nil)
		first := errors.New("first")
		second := errors.New("second")

		assert.True(t, e.Resolve(first))
		assert.False(t, e.Resolve(second))
		assert.False(t, e.Resolve(nil))

		assert.True(t, e.Resolved())
		assert.Same(t, first, e.Err)
	})
	t.Run("concurrent resolvers produce one winner", func(t *testing.T) {
		e := NewExecution(nil)
		const n = 32
		var wins int32
		var mu sync.Mutex
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(i int) {
				defer wg.Done()
				if e.Resolve(errors.New("racer")) {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins)
		assert.True(t, e.Resolved())
	})
}

func TestExecutionAccessors(t *testing.T) {
	t.Run("no response", func(t *testing.T) {
		e := NewExecution(nil)

		assert.Equal(t, 0, e.StatusCode())
		assert.Nil(t, e.Header())
	})
	t.Run("with response", func(t *testing.T) {
		e := NewExecution(nil)
		e.Response = &http.Response{
			StatusCode: 204,
			Header:     http.Header{"X-Test": {"yes"}},
		}

		assert.Equal(t, 204, e.StatusCode())
		assert.Equal(t, "yes", e.Header().Get("X-Test"))
	})
	t.Run("duration", func(t *testing.T) {
		e := NewExecution(nil)
		assert.Equal(t, time.Duration(0), e.Duration())
		assert.False(t, e.Started())
		assert.False(t, e.Ended())

		e.Start = time.Now().Add(-time.Second)
		assert.True(t, e.Started())
		assert.GreaterOrEqual(t, e.Duration(), time.Second)

		e.End = e.Start.Add(2 * time.Second)
		assert.True(t, e.Ended())
		assert.Equal(t, 2*time.Second, e.Duration())
	})
	t.Run("state round trip", func(t *testing.T) {
		e := NewExecution(nil)
		for _, s := range []State{Preparing, Connecting, AwaitingHeaders, Streaming, Done} {
			e.SetState(s)
			assert.Equal(t, s, e.State())
		}
	})
	t.Run("current URL tracks redirects", func(t *testing.T) {
		p, err := NewPlan("GET", "http://test/a", nil)
		require.NoError(t, err)
		e := NewExecution(p)

		e.URL = mustParseURL(t, "http://elsewhere/b")

		assert.Equal(t, "http://test/a", p.URL.String())
		assert.Equal(t, "http://elsewhere/b", e.URL.String())
	})
}

func TestExecutionTimeout(t *testing.T) {
	e := NewExecution(nil)
	assert.False(t, e.Timeout())

	e.Err = errors.New("not a timeout")
	assert.False(t, e.Timeout())

	e.Err = context.DeadlineExceeded
	assert.True(t, e.Timeout())

	e.Err = timeoutErrForTest{}
	assert.True(t, e.Timeout())
}

type timeoutErrForTest struct{}

func (timeoutErrForTest) Error() string { return "deadline blown" }
func (timeoutErrForTest) Timeout() bool { return true }

func TestExecutionJSON(t *testing.T) {
	e := NewExecution(nil)
	e.Body = []byte(`{"name":"pixl","count":3}`)

	var v struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, e.JSON(&v))
	assert.Equal(t, "pixl", v.Name)
	assert.Equal(t, 3, v.Count)

	e.Body = []byte(`{`)
	assert.Error(t, e.JSON(&v))
}

func TestExecutionValue(t *testing.T) {
	type keyA struct{}
	type keyB struct{}
	e := NewExecution(nil)

	assert.Nil(t, e.Value(keyA{}))

	e.SetValue(keyA{}, "a")
	e.SetValue(keyB{}, 42)

	assert.Equal(t, "a", e.Value(keyA{}))
	assert.Equal(t, 42, e.Value(keyB{}))
	assert.Nil(t, e.Value("unknown"))
}
