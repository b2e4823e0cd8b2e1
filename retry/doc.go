// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package retry provides wait strategies governing how long the reliable
HTTP client pauses between retries of a failed request attempt.

Whether a retry happens at all is decided elsewhere: the response
classifier (package classify) judges status codes, the client's error
taxonomy judges transport and timeout errors, and the plan's retry
budget caps the count. A Waiter only answers "how long until the next
attempt".

The zero-wait DefaultWaiter retries immediately. For anything facing a
real server, use an exponential strategy:

	client := &pixlrequest.Client{
		WaitPolicy: retry.NewExpWaiter(50*time.Millisecond, 2*time.Second, time.Now()),
	}

or adapt any strategy from github.com/cenkalti/backoff:

	client := &pixlrequest.Client{
		WaitPolicy: retry.NewBackOffWaiter(func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			return b
		}),
	}

Waits are interruptible: canceling the plan context, or the execution
itself, cuts the pause short and resolves the execution immediately.
*/
package retry
