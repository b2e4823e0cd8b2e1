// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package codec decodes compressed HTTP response bodies.

The request engine owns content decoding rather than delegating it to
the transport, so that decoding works uniformly in buffered and
streaming modes, decode time is measurable as its own phase, and
callers can turn decoding off and receive the raw bytes. A Registry
maps Content-Encoding tokens to decoders and contributes the
Accept-Encoding header advertised on requests. Responses carrying an
encoding nobody registered pass through untouched.
*/
package codec
