// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package pixlrequest provides a reliable HTTP client with retries,
followed redirects, fine-grained attempt timeouts, address caching, IP
access control, transparent content decoding, and a per-phase timing
breakdown of the whole attempt chain.

Start by creating a Client:

	client := &pixlrequest.Client{}    // Use default policies

and executing request plans with it:

	e, err := client.Get("https://www.example.com")

The zero value Client retries nothing, follows nothing, and times out
each attempt after 30 seconds awaiting the first response byte. Budgets
live on the plan, policies on the client:

	p, err := request.NewPlan("GET", "https://www.example.com", nil)
	if err != nil {
		...
	}
	p.Follow = 5                      // Follow up to 5 redirects
	p.Retries = 3                     // Retry failed attempts up to 3 times
	e, err := client.Do(p)

Customize client behavior by setting the relevant policy fields:

	client := &pixlrequest.Client{
		TimeoutPolicy: timeout.Fixed(5*time.Second, 2*time.Second),
		WaitPolicy:    retry.NewExpWaiter(250*time.Millisecond, 10*time.Second, time.Now().UnixNano()),
		ACL:           acl.DenyPrivate(),
	}

The result of a plan execution is a request.Execution which carries the
final response, the fully-buffered body (or the byte count streamed to
the plan's download sink), the terminal error if any, and a timing
report:

	fmt.Println(e.StatusCode(), len(e.Body), e.Timing.Report())

Every error returned by an executing method is of type *Error, whose
Kind classifies the failure mode (validation, access denied, timeout,
transport, body decode, aborted, or a synthetic status error).

Extend the client by installing event handlers at the designated
plug-in points (see Event), or compose its transport with the breaker
and throttle subpackages. The metrics subpackage publishes execution
outcomes to Prometheus through the handler mechanism.
*/
package pixlrequest
