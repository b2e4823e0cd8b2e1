// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesSource(t *testing.T) {
	s := BytesSource{Type: "text/plain", Data: []byte("hello")}

	assert.Equal(t, "text/plain", s.ContentType())
	assert.Equal(t, int64(5), s.ContentLength())

	for i := 0; i < 2; i++ {
		rc, err := s.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, []byte("hello"), b)
	}
}

func TestFormSource(t *testing.T) {
	s := FormSource(url.Values{"spam": {"eggs"}, "ham": {"on", "off"}})

	assert.Equal(t, "application/x-www-form-urlencoded", s.ContentType())

	rc, err := s.Open()
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, int64(len(b)), s.ContentLength())

	values, err := url.ParseQuery(string(b))
	require.NoError(t, err)
	assert.Equal(t, url.Values{"spam": {"eggs"}, "ham": {"on", "off"}}, values)
}

func TestMultipartSource(t *testing.T) {
	s := &MultipartSource{
		Fields: url.Values{"field": {"value"}},
		Files: []File{
			{Field: "upload", Name: "notes.txt", Content: []byte("file body")},
		},
	}

	assert.Equal(t, int64(-1), s.ContentLength())

	mediaType, params, err := mime.ParseMediaType(s.ContentType())
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)
	boundary := params["boundary"]
	require.NotEmpty(t, boundary)

	// The boundary must stay stable across openings, or a retried
	// attempt would send a body inconsistent with its headers.
	rc, err := s.Open()
	require.NoError(t, err)
	first, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	rc, err = s.Open()
	require.NoError(t, err)
	second, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	assert.Equal(t, first, second)

	mr := multipart.NewReader(strings.NewReader(string(first)), boundary)
	form, err := mr.ReadForm(1 << 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"value"}, form.Value["field"])
	require.Len(t, form.File["upload"], 1)
	fh := form.File["upload"][0]
	assert.Equal(t, "notes.txt", fh.Filename)
	f, err := fh.Open()
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("file body"), content)
}

func TestBodyBytes(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		b, err := BodyBytes(nil)
		require.NoError(t, err)
		assert.Nil(t, b)
	})
	t.Run("string", func(t *testing.T) {
		b, err := BodyBytes("foo")
		require.NoError(t, err)
		assert.Equal(t, []byte("foo"), b)
	})
	t.Run("bytes", func(t *testing.T) {
		in := []byte("bar")
		b, err := BodyBytes(in)
		require.NoError(t, err)
		assert.Equal(t, in, b)
	})
	t.Run("reader", func(t *testing.T) {
		b, err := BodyBytes(strings.NewReader("baz"))
		require.NoError(t, err)
		assert.Equal(t, []byte("baz"), b)
	})
	t.Run("read closer", func(t *testing.T) {
		b, err := BodyBytes(io.NopCloser(strings.NewReader("qux")))
		require.NoError(t, err)
		assert.Equal(t, []byte("qux"), b)
	})
	t.Run("bad type", func(t *testing.T) {
		_, err := BodyBytes(3.14)
		assert.Error(t, err)
	})
}
