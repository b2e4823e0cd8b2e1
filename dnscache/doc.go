// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package dnscache caches resolved IP addresses for a bounded lifetime.

The request engine populates the cache as a write-through side effect
of name resolution during an attempt, and consults it before each
attempt: on a hit the attempt dials the cached address directly and the
DNS phase disappears from the attempt's timing. The cache never
resolves names itself.

The zero TTL is the off switch. DefaultCache ships disabled so that
nothing is cached unless a caller opts in, either by raising the TTL of
DefaultCache or by injecting a per-client Cache.
*/
package dnscache
