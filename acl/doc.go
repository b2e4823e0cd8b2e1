// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package acl restricts the IP addresses an HTTP client will connect to.

An ACL holds allow and deny prefix lists. The request engine checks the
target against the ACL before any network work when the target is an
address literal, and checks every resolved address as resolution
completes, aborting the attempt if any is denied. ACL violations are
final: the engine never retries them, because a denied destination does
not become permitted by trying again.
*/
package acl
