// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	urlpkg "net/url"
	"os"
	"strings"
	"sync"
)

// A BodySource produces the request body for an attempt. Unlike a
// one-shot io.Reader, a BodySource can be opened once per attempt,
// which makes request bodies replayable across retries and followed
// redirects.
//
// Implementations must be safe for concurrent use by multiple
// goroutines.
type BodySource interface {
	// ContentType returns the media type of the body, or the empty
	// string to leave the Content-Type header alone.
	ContentType() string
	// ContentLength returns the body length in bytes, or -1 when the
	// length is unknown, in which case the body is sent chunked.
	ContentLength() int64
	// Open returns a fresh reader over the complete body. It is called
	// once per attempt, and once more whenever the transport needs to
	// replay the body.
	Open() (io.ReadCloser, error)
}

// A BytesSource serves a static byte slice under an explicit media
// type. Use it instead of Plan.Body when the content type should
// travel with the body.
type BytesSource struct {
	// Type is the media type reported by ContentType.
	Type string
	// Data is the body.
	Data []byte
}

// ContentType returns the source's media type.
func (s BytesSource) ContentType() string {
	return s.Type
}

// ContentLength returns the body length.
func (s BytesSource) ContentLength() int64 {
	return int64(len(s.Data))
}

// Open returns a reader over the data.
func (s BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

// A FormSource serves URL-encoded form values as an
// application/x-www-form-urlencoded body.
type FormSource urlpkg.Values

// ContentType returns "application/x-www-form-urlencoded".
func (s FormSource) ContentType() string {
	return "application/x-www-form-urlencoded"
}

// ContentLength returns the length of the encoded form.
func (s FormSource) ContentLength() int64 {
	return int64(len(urlpkg.Values(s).Encode()))
}

// Open returns a reader over the encoded form.
func (s FormSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(urlpkg.Values(s).Encode())), nil
}

// A File is one file part of a MultipartSource. If Content is non-nil
// it is used as the part body; otherwise Path is opened and read each
// time the source is opened, so a retried attempt sends the file's
// current contents.
type File struct {
	// Field is the form field name of the part.
	Field string
	// Name is the filename reported in the part's disposition.
	Name string
	// Path locates the file on disk. Ignored when Content is non-nil.
	Path string
	// Content is the in-memory part body, if any.
	Content []byte
}

// A MultipartSource serves form fields and file parts as a
// multipart/form-data body. The boundary is fixed when the source is
// first used, so every attempt sends a body consistent with the
// advertised Content-Type.
//
// The length of a multipart body is not computed ahead of time;
// ContentLength reports unknown and the body is sent chunked.
type MultipartSource struct {
	// Fields holds the ordinary form fields.
	Fields urlpkg.Values
	// Files holds the file parts.
	Files []File

	once     sync.Once
	boundary string
}

// ContentType returns "multipart/form-data" with the source's
// boundary parameter.
func (s *MultipartSource) ContentType() string {
	return "multipart/form-data; boundary=" + s.bound()
}

// ContentLength returns -1: multipart bodies are sent chunked.
func (s *MultipartSource) ContentLength() int64 {
	return -1
}

// Open assembles the multipart body. File parts backed by a path are
// read from disk on every call.
func (s *MultipartSource) Open() (io.ReadCloser, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(s.bound()); err != nil {
		return nil, err
	}
	for field, values := range s.Fields {
		for _, value := range values {
			if err := w.WriteField(field, value); err != nil {
				return nil, err
			}
		}
	}
	for _, f := range s.Files {
		part, err := w.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, err
		}
		if err := writeFilePart(part, f); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return io.NopCloser(&buf), nil
}

func writeFilePart(part io.Writer, f File) error {
	if f.Content != nil {
		_, err := part.Write(f.Content)
		return err
	}
	if f.Path == "" {
		return fmt.Errorf("pixlrequest/request: file part %q has neither content nor path", f.Field)
	}
	src, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(part, src)
	return err
}

func (s *MultipartSource) bound() string {
	s.once.Do(func() {
		s.boundary = multipart.NewWriter(io.Discard).Boundary()
	})
	return s.boundary
}
