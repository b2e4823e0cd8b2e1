// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pixlrequest

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// DefaultTransport is the transport used by the default HTTP doer. It
// mirrors the standard library's default transport with two deliberate
// differences:
//
// • DisableCompression is set, because the engine owns content
// decoding through its codec registry and must see the raw bytes (and
// the Content-Encoding header) the server sent.
//
// • Dial and handshake timeouts are explicit, so a dead host fails the
// connect phase promptly instead of riding on the attempt timers.
//
// Connections dialed by this transport favor latency over throughput:
// Go's TCP connections disable Nagle's send-coalescing algorithm
// (TCP_NODELAY) by default, and this transport keeps it that way.
var DefaultTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	DisableCompression:    true,
}

// DefaultDoer is the HTTP doer used by clients whose HTTPDoer field is
// nil. It never follows redirects on its own: redirect responses
// surface to the engine so the plan's Follow budget governs them.
var DefaultDoer HTTPDoer = &http.Client{
	Transport:     DefaultTransport,
	CheckRedirect: NoFollow,
}

// NoFollow is a CheckRedirect function for http.Client which surfaces
// every redirect response instead of following it. Install it on any
// custom *http.Client used as a Client's HTTPDoer: if the doer chases
// redirects itself, the engine never sees them, and the plan's Follow
// budget and AfterRedirect event have nothing to act on.
func NoFollow(_ *http.Request, _ []*http.Request) error {
	return http.ErrUseLastResponse
}

// Insecure returns an HTTP doer that skips TLS certificate
// verification but otherwise behaves like DefaultDoer. It exists for
// talking to test fixtures with self-signed certificates. Do not use
// it against anything you do not control.
func Insecure() HTTPDoer {
	t := DefaultTransport.Clone()
	if t.TLSClientConfig == nil {
		t.TLSClientConfig = &tls.Config{}
	}
	t.TLSClientConfig.InsecureSkipVerify = true
	return &http.Client{
		Transport:     t,
		CheckRedirect: NoFollow,
	}
}
