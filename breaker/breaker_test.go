// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package breaker

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhuckaby/pixl-request/classify"
)

type doerFunc func(r *http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) {
	return f(r)
}

func response(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("")),
	}
}

func settings(consecutive uint32) gobreaker.Settings {
	return gobreaker.Settings{
		Name:    "test",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutive
		},
	}
}

func TestNewDoer(t *testing.T) {
	assert.Panics(t, func() { NewDoer(nil, gobreaker.Settings{}, nil) })
}

func TestBreakerDoer(t *testing.T) {
	req, err := http.NewRequest("GET", "http://test", nil)
	require.NoError(t, err)

	t.Run("success passes through", func(t *testing.T) {
		d := NewDoer(doerFunc(func(*http.Request) (*http.Response, error) {
			return response(200), nil
		}), settings(3), nil)

		resp, err := d.Do(req)

		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, gobreaker.StateClosed, d.State())
	})
	t.Run("failure status counts but is not swallowed", func(t *testing.T) {
		d := NewDoer(doerFunc(func(*http.Request) (*http.Response, error) {
			return response(503), nil
		}), settings(3), nil)

		resp, err := d.Do(req)

		require.NoError(t, err)
		assert.Equal(t, 503, resp.StatusCode)
		assert.Equal(t, uint32(1), d.Counts().ConsecutiveFailures)
	})
	t.Run("trips open after consecutive failures", func(t *testing.T) {
		calls := 0
		d := NewDoer(doerFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("connection refused")
		}), settings(3), nil)

		for i := 0; i < 3; i++ {
			_, err := d.Do(req)
			assert.Error(t, err)
		}
		require.Equal(t, gobreaker.StateOpen, d.State())

		_, err := d.Do(req)

		assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
		assert.Equal(t, 3, calls, "open breaker must not reach the doer")
	})
	t.Run("custom failure predicate", func(t *testing.T) {
		d := NewDoer(doerFunc(func(*http.Request) (*http.Response, error) {
			return response(429), nil
		}), settings(1), classify.Codes(429))

		resp, err := d.Do(req)

		require.NoError(t, err)
		assert.Equal(t, 429, resp.StatusCode)
		assert.Equal(t, gobreaker.StateOpen, d.State())
	})
	t.Run("default predicate ignores 4xx", func(t *testing.T) {
		d := NewDoer(doerFunc(func(*http.Request) (*http.Response, error) {
			return response(404), nil
		}), settings(1), nil)

		_, err := d.Do(req)

		require.NoError(t, err)
		assert.Equal(t, gobreaker.StateClosed, d.State())
	})
}

func TestBreakerDoerCloseIdleConnections(t *testing.T) {
	closed := false
	d := NewDoer(&idleCloserDoer{closed: &closed}, settings(3), nil)

	d.CloseIdleConnections()

	assert.True(t, closed)
}

type idleCloserDoer struct {
	closed *bool
}

func (d *idleCloserDoer) Do(*http.Request) (*http.Response, error) {
	return response(200), nil
}

func (d *idleCloserDoer) CloseIdleConnections() {
	*d.closed = true
}
