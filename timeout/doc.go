// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout defines flexible policies for bounding the two slow
// stretches of an HTTP request attempt: waiting for the first response
// byte and waiting for further body data once the response is flowing.
//
// Implement the Policy interface to define a custom policy, or use
// Fixed or Adaptive to construct the built-in ones. Per-plan overrides
// (Plan.FirstByteTimeout and Plan.IdleTimeout) take precedence over
// the client's policy when set.
package timeout
