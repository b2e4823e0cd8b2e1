// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pixlrequest

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhuckaby/pixl-request/request"
)

func TestGet(t *testing.T) {
	t.Run("bad URL", func(t *testing.T) {
		d := newMockDoer(t)

		e, err := Get(d, "ftp://not.http/")

		d.AssertNotCalled(t, "Do", mock.Anything)
		assert.Nil(t, e)
		assert.Error(t, err)
	})
	t.Run("normal", func(t *testing.T) {
		d := newMockDoer(t)
		x := &request.Execution{}
		d.On("Do", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "GET" && p.URL.String() == "http://test" && p.Body == nil
		})).Return(x, nil).Once()

		e, err := Get(d, "http://test")

		d.AssertExpectations(t)
		assert.Same(t, x, e)
		assert.NoError(t, err)
	})
}

func TestHead(t *testing.T) {
	d := newMockDoer(t)
	x := &request.Execution{}
	d.On("Do", mock.MatchedBy(func(p *request.Plan) bool {
		return p.Method == "HEAD" && p.URL.String() == "http://test"
	})).Return(x, nil).Once()

	e, err := Head(d, "http://test")

	d.AssertExpectations(t)
	assert.Same(t, x, e)
	assert.NoError(t, err)
}

func TestPost(t *testing.T) {
	t.Run("bad body", func(t *testing.T) {
		d := newMockDoer(t)

		e, err := Post(d, "http://test", "text/plain", 12345)

		d.AssertNotCalled(t, "Do", mock.Anything)
		assert.Nil(t, e)
		assert.Error(t, err)
	})
	t.Run("normal", func(t *testing.T) {
		d := newMockDoer(t)
		x := &request.Execution{}
		d.On("Do", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "POST" &&
				string(p.Body) == "ham and eggs" &&
				p.Header.Get("Content-Type") == "text/plain"
		})).Return(x, nil).Once()

		e, err := Post(d, "http://test", "text/plain", "ham and eggs")

		d.AssertExpectations(t)
		assert.Same(t, x, e)
		assert.NoError(t, err)
	})
}

func TestPostForm(t *testing.T) {
	d := newMockDoer(t)
	x := &request.Execution{}
	d.On("Do", mock.MatchedBy(func(p *request.Plan) bool {
		return p.Method == "POST" &&
			string(p.Body) == "spam=eggs" &&
			p.Header.Get("Content-Type") == "application/x-www-form-urlencoded"
	})).Return(x, nil).Once()

	e, err := PostForm(d, "http://test", url.Values{"spam": {"eggs"}})

	d.AssertExpectations(t)
	assert.Same(t, x, e)
	assert.NoError(t, err)
}

func TestPut(t *testing.T) {
	d := newMockDoer(t)
	x := &request.Execution{}
	d.On("Do", mock.MatchedBy(func(p *request.Plan) bool {
		return p.Method == "PUT" &&
			string(p.Body) == "payload" &&
			p.Header.Get("Content-Type") == "application/octet-stream"
	})).Return(x, nil).Once()

	e, err := Put(d, "http://test", "application/octet-stream", []byte("payload"))

	d.AssertExpectations(t)
	assert.Same(t, x, e)
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	d := newMockDoer(t)
	x := &request.Execution{}
	d.On("Do", mock.MatchedBy(func(p *request.Plan) bool {
		return p.Method == "DELETE" && p.URL.String() == "http://test/thing"
	})).Return(x, nil).Once()

	e, err := Delete(d, "http://test/thing")

	d.AssertExpectations(t)
	assert.Same(t, x, e)
	assert.NoError(t, err)
}

func TestInflate(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Panics(t, func() { Inflate(nil) })
	})
	t.Run("already an Executor", func(t *testing.T) {
		cl := &Client{}

		x := Inflate(cl)

		assert.Same(t, cl, x)
	})
	t.Run("plain Doer", func(t *testing.T) {
		d := newMockDoer(t)
		e1 := &request.Execution{}
		d.On("Do", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "GET"
		})).Return(e1, nil).Twice()

		x := Inflate(d)
		require.NotNil(t, x)

		e, err := x.Get("http://test")
		assert.Same(t, e1, e)
		assert.NoError(t, err)

		p, err := request.NewPlan("GET", "http://test", nil)
		require.NoError(t, err)
		e, err = x.Do(p)
		assert.Same(t, e1, e)
		assert.NoError(t, err)

		x.CloseIdleConnections() // No-op: mock is not an IdleCloser.
		d.AssertExpectations(t)
	})
}

type mockDoer struct {
	mock.Mock
}

func newMockDoer(t *testing.T) *mockDoer {
	m := &mockDoer{}
	m.Test(t)
	return m
}

func (m *mockDoer) Do(p *request.Plan) (*request.Execution, error) {
	args := m.Called(p)
	err := args.Error(1)
	if e, ok := args.Get(0).(*request.Execution); ok {
		return e, err
	}
	return nil, err
}
