// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package classify

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecisionName(t *testing.T) {
	assert.Equal(t, "Proceed", Proceed.Name())
	assert.Equal(t, "Retry", Retry.String())
	assert.Equal(t, "Redirect", Redirect.Name())
}

func TestStatusPredicate(t *testing.T) {
	t.Run("Range", func(t *testing.T) {
		p := Range(500, 599)
		assert.False(t, p(499))
		assert.True(t, p(500))
		assert.True(t, p(599))
		assert.False(t, p(600))
	})
	t.Run("Codes", func(t *testing.T) {
		p := Codes(429, 503)
		assert.True(t, p(429))
		assert.True(t, p(503))
		assert.False(t, p(500))
	})
	t.Run("And", func(t *testing.T) {
		p := Range(500, 599).And(Codes(503).Not())
		assert.True(t, p(500))
		assert.False(t, p(503))
	})
	t.Run("Or", func(t *testing.T) {
		p := Codes(429).Or(Range(500, 599))
		assert.True(t, p(429))
		assert.True(t, p(502))
		assert.False(t, p(404))
	})
}

func TestRedirectable(t *testing.T) {
	assert.True(t, Redirectable(301))
	assert.True(t, Redirectable(302))
	assert.False(t, Redirectable(303))
	assert.False(t, Redirectable(304))
	assert.True(t, Redirectable(307))
	assert.True(t, Redirectable(308))
	assert.False(t, Redirectable(200))
}

func locationHeader(loc string) http.Header {
	h := make(http.Header)
	h.Set("Location", loc)
	return h
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		header   http.Header
		follow   bool
		retry    bool
		expected Decision
	}{
		{
			name:     "OK proceeds",
			status:   200,
			follow:   true,
			retry:    true,
			expected: Proceed,
		},
		{
			name:     "Redirect with budget and location",
			status:   302,
			header:   locationHeader("/next"),
			follow:   true,
			retry:    true,
			expected: Redirect,
		},
		{
			name:     "Redirect without budget proceeds",
			status:   302,
			header:   locationHeader("/next"),
			follow:   false,
			retry:    true,
			expected: Proceed,
		},
		{
			name:     "Redirect without location falls through",
			status:   301,
			follow:   true,
			retry:    true,
			expected: Proceed,
		},
		{
			name:     "Server error with budget retries",
			status:   503,
			follow:   true,
			retry:    true,
			expected: Retry,
		},
		{
			name:     "Server error without budget proceeds",
			status:   503,
			follow:   true,
			retry:    false,
			expected: Proceed,
		},
		{
			name:     "Redirect outranks retry",
			status:   308,
			header:   locationHeader("https://elsewhere.example.com/"),
			follow:   true,
			retry:    true,
			expected: Redirect,
		},
		{
			name:     "Client error proceeds by default",
			status:   404,
			follow:   true,
			retry:    true,
			expected: Proceed,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			d := Default.Classify(testCase.status, testCase.header, testCase.follow, testCase.retry)
			assert.Equal(t, testCase.expected, d)
		})
	}

	t.Run("Custom retry set", func(t *testing.T) {
		c := &Classifier{RetryOn: Codes(429)}
		assert.Equal(t, Retry, c.Classify(429, nil, false, true))
		assert.Equal(t, Proceed, c.Classify(500, nil, false, true))
	})
	t.Run("Redirect status outside retry set with empty location", func(t *testing.T) {
		c := &Classifier{RetryOn: Range(300, 399)}
		// Falls through redirect for missing Location, then retries on
		// the configured status set.
		assert.Equal(t, Retry, c.Classify(301, nil, true, true))
	})
	t.Run("Custom redirect set", func(t *testing.T) {
		c := &Classifier{RedirectOn: Codes(303)}
		assert.Equal(t, Redirect, c.Classify(303, locationHeader("/next"), true, false))
		assert.Equal(t, Proceed, c.Classify(302, locationHeader("/next"), true, false))
	})
	t.Run("Custom redirect set narrows the default", func(t *testing.T) {
		c := &Classifier{RedirectOn: Codes(308)}
		assert.Equal(t, Redirect, Default.Classify(302, locationHeader("/next"), true, false))
		assert.Equal(t, Proceed, c.Classify(302, locationHeader("/next"), true, false))
		assert.Equal(t, Redirect, c.Classify(308, locationHeader("/next"), true, false))
	})
}
