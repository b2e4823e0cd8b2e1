// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// A Decoder wraps a raw response body in a reader that yields the
// decoded bytes. The returned ReadCloser owns r only for reading;
// closing it must release any decoder state but need not close r.
type Decoder func(r io.Reader) (io.ReadCloser, error)

// A Registry maps Content-Encoding tokens to decoders and advertises
// the encodings it can decode.
//
// Lookups are case-insensitive. A Registry is safe for concurrent use
// by multiple goroutines once populated; Register must not be called
// concurrently with lookups.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
	order    []string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]Decoder),
	}
}

// Register adds a decoder for the given Content-Encoding token,
// replacing any decoder previously registered for it. Registration
// order determines the order of tokens in AcceptEncoding.
func (r *Registry) Register(encoding string, d Decoder) {
	if d == nil {
		panic("pixlrequest/codec: nil decoder")
	}
	key := strings.ToLower(encoding)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.decoders[key]; !ok {
		r.order = append(r.order, key)
	}
	r.decoders[key] = d
}

// Decoder returns the decoder registered for the given Content-Encoding
// token, if any.
func (r *Registry) Decoder(encoding string) (Decoder, bool) {
	key := strings.ToLower(strings.TrimSpace(encoding))
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decoders[key]
	return d, ok
}

// AcceptEncoding returns the value to advertise in an Accept-Encoding
// request header: the registered tokens in registration order,
// comma-separated.
func (r *Registry) AcceptEncoding() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return strings.Join(r.order, ", ")
}

// DefaultRegistry decodes the encodings commonly produced by HTTP
// servers: gzip, deflate (both zlib-wrapped and raw), brotli, and
// zstandard.
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	r.Register("gzip", Gzip)
	r.Register("deflate", Deflate)
	r.Register("br", Brotli)
	r.Register("zstd", Zstd)
	return r
}()

// Gzip decodes a gzip body.
func Gzip(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return zr, nil
}

// Deflate decodes a deflate body. Despite RFC 9110 defining "deflate"
// as zlib-wrapped, servers in the wild send both the zlib form and raw
// flate streams, so the first two bytes are sniffed to pick the right
// reader.
func Deflate(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	hdr, err := br.Peek(2)
	if err == nil && isZlibHeader(hdr) {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

// Brotli decodes a brotli body.
func Brotli(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(brotli.NewReader(r)), nil
}

// Zstd decodes a zstandard body.
func Zstd(r io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return zr.IOReadCloser(), nil
}

// isZlibHeader reports whether the two bytes look like a zlib stream
// header: compression method 8 (deflate), a window size within spec,
// and a check value that makes the header a multiple of 31 as required
// by RFC 1950.
func isZlibHeader(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	cmf, flg := b[0], b[1]
	if cmf&0x0f != 8 || cmf>>4 > 7 {
		return false
	}
	return (uint16(cmf)<<8|uint16(flg))%31 == 0
}
