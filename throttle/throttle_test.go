// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package throttle

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type doerFunc func(r *http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) {
	return f(r)
}

func okDoer(calls *int) Doer {
	return doerFunc(func(*http.Request) (*http.Response, error) {
		*calls++
		return &http.Response{
			StatusCode: 200,
			Body:       io.NopCloser(strings.NewReader("")),
		}, nil
	})
}

func TestNewDoer(t *testing.T) {
	assert.Panics(t, func() { NewDoer(nil, rate.Inf, 0) })
}

func TestThrottledDoer(t *testing.T) {
	t.Run("paces requests", func(t *testing.T) {
		calls := 0
		d := NewDoer(okDoer(&calls), rate.Every(50*time.Millisecond), 1)
		req, err := http.NewRequest("GET", "http://test", nil)
		require.NoError(t, err)

		start := time.Now()
		for i := 0; i < 3; i++ {
			resp, err := d.Do(req)
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
		}

		// First request uses the burst token; the next two wait a full
		// period each.
		assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
		assert.Equal(t, 3, calls)
	})
	t.Run("cancellation interrupts the wait", func(t *testing.T) {
		calls := 0
		d := NewDoer(okDoer(&calls), rate.Every(time.Hour), 1)

		req, err := http.NewRequest("GET", "http://test", nil)
		require.NoError(t, err)

		// Drain the burst token.
		_, err = d.Do(req)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err = d.Do(req.WithContext(ctx))

		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
	t.Run("limiter is adjustable", func(t *testing.T) {
		calls := 0
		d := NewDoer(okDoer(&calls), rate.Limit(1), 1)

		d.Limiter().SetLimit(rate.Inf)

		req, err := http.NewRequest("GET", "http://test", nil)
		require.NoError(t, err)
		start := time.Now()
		for i := 0; i < 10; i++ {
			_, err := d.Do(req)
			require.NoError(t, err)
		}
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestThrottledDoerCloseIdleConnections(t *testing.T) {
	closed := false
	d := NewDoer(&idleCloserDoer{closed: &closed}, rate.Inf, 0)

	d.CloseIdleConnections()

	assert.True(t, closed)
}

type idleCloserDoer struct {
	closed *bool
}

func (d *idleCloserDoer) Do(*http.Request) (*http.Response, error) {
	return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(""))}, nil
}

func (d *idleCloserDoer) CloseIdleConnections() {
	*d.closed = true
}
