// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plaintext = "the quick brown fox jumps over the lazy dog, repeatedly, " +
	"because compression needs something to chew on. the quick brown fox " +
	"jumps over the lazy dog."

func gzipped(t *testing.T, s string) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zlibbed(t *testing.T, s string) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func flated(t *testing.T, s string) []byte {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func brotlied(t *testing.T, s string) []byte {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstded(t *testing.T, s string) []byte {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func decodeAll(t *testing.T, d Decoder, compressed []byte) string {
	rc, err := d(bytes.NewReader(compressed))
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, rc.Close())
	}()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestRoundTrip(t *testing.T) {
	testCases := []struct {
		encoding   string
		compressed []byte
	}{
		{"gzip", gzipped(t, plaintext)},
		{"deflate", zlibbed(t, plaintext)},
		{"br", brotlied(t, plaintext)},
		{"zstd", zstded(t, plaintext)},
	}
	for _, testCase := range testCases {
		t.Run(testCase.encoding, func(t *testing.T) {
			d, ok := DefaultRegistry.Decoder(testCase.encoding)
			require.True(t, ok)
			assert.Equal(t, plaintext, decodeAll(t, d, testCase.compressed))
		})
	}
}

func TestDeflateRawStream(t *testing.T) {
	// Some servers send raw flate under Content-Encoding: deflate.
	assert.Equal(t, plaintext, decodeAll(t, Deflate, flated(t, plaintext)))
}

func TestGzipGarbage(t *testing.T) {
	_, err := Gzip(strings.NewReader("definitely not gzip"))
	assert.Error(t, err)
}

func TestBrotliGarbageFailsOnRead(t *testing.T) {
	rc, err := Brotli(strings.NewReader("definitely not brotli"))
	require.NoError(t, err)
	_, err = io.ReadAll(rc)
	assert.Error(t, err)
}

func TestRegistryLookup(t *testing.T) {
	t.Run("Case insensitive", func(t *testing.T) {
		_, ok := DefaultRegistry.Decoder("GZIP")
		assert.True(t, ok)
		_, ok = DefaultRegistry.Decoder(" gzip ")
		assert.True(t, ok)
	})
	t.Run("Unknown encoding misses", func(t *testing.T) {
		_, ok := DefaultRegistry.Decoder("snappy")
		assert.False(t, ok)
	})
}

func TestRegistryAcceptEncoding(t *testing.T) {
	assert.Equal(t, "gzip, deflate, br, zstd", DefaultRegistry.AcceptEncoding())

	r := NewRegistry()
	assert.Equal(t, "", r.AcceptEncoding())

	r.Register("gzip", Gzip)
	r.Register("br", Brotli)
	assert.Equal(t, "gzip, br", r.AcceptEncoding())

	// Re-registering must not duplicate the token.
	r.Register("gzip", Gzip)
	assert.Equal(t, "gzip, br", r.AcceptEncoding())
}

func TestRegisterNilDecoderPanics(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() {
		r.Register("gzip", nil)
	})
}

func TestIsZlibHeader(t *testing.T) {
	assert.True(t, isZlibHeader([]byte{0x78, 0x9c}))
	assert.True(t, isZlibHeader([]byte{0x78, 0x01}))
	assert.False(t, isZlibHeader([]byte{0x1f, 0x8b}), "gzip magic is not zlib")
	assert.False(t, isZlibHeader([]byte{0x78}))
	assert.False(t, isZlibHeader(nil))
}
