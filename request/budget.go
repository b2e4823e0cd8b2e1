// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import "strconv"

// A Budget limits how many times an optional behavior, such as
// following a redirect or retrying a failed attempt, may occur during
// one plan execution.
//
// The zero value disables the behavior entirely, so a zero-value Plan
// neither follows redirects nor retries. A positive value is a
// countdown of that many uses. Unlimited (or any negative value) never
// runs out.
type Budget int

// Unlimited is a budget that never runs out.
const Unlimited Budget = -1

// Remaining reports whether the budget still permits a use: true for
// Unlimited and for any positive countdown, false once a countdown
// reaches zero and for the disabled zero value.
func (b Budget) Remaining() bool {
	return b != 0
}

// Dec consumes one use from a countdown budget and returns the
// remainder. Unlimited stays Unlimited and an exhausted budget stays
// exhausted.
func (b Budget) Dec() Budget {
	if b > 0 {
		return b - 1
	}
	return b
}

// String renders the budget as "off", "unlimited", or the remaining
// count.
func (b Budget) String() string {
	switch {
	case b == 0:
		return "off"
	case b < 0:
		return "unlimited"
	default:
		return strconv.Itoa(int(b))
	}
}
