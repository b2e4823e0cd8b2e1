// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

// A State names the stage the current HTTP request attempt is in.
// Exactly one attempt is in flight at any moment of an execution, and
// it moves through the states in order, back to Preparing whenever a
// retry or redirect starts a fresh attempt.
type State int32

const (
	// Preparing means the attempt is being assembled: validation,
	// access control, address cache consultation, body preparation.
	Preparing State = iota
	// Connecting means a connection to the target is being established.
	Connecting
	// AwaitingHeaders means the request has been written and no
	// response byte has arrived yet.
	AwaitingHeaders
	// Streaming means response body bytes are being received.
	Streaming
	// Done means the attempt has fully concluded, successfully or not.
	Done
)

var stateNames = []string{
	"Preparing",
	"Connecting",
	"AwaitingHeaders",
	"Streaming",
	"Done",
}

// Name returns the name of the state.
func (s State) Name() string {
	return stateNames[int(s)]
}

// String returns the name of the state.
func (s State) String() string {
	return s.Name()
}
