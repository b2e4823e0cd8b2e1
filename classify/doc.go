// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package classify holds the pure decision logic applied to every HTTP
response received during a request's execution: follow the redirect,
retry the request, or surface the response to the caller.

The Classifier never performs I/O and never consults clocks or budgets
itself. The engine projects its remaining redirect and retry budgets
into two booleans and hands them in together with the status code and
header, which keeps the priority rule (redirect over retry over
proceed) trivially testable.

StatusPredicate declares sets of status codes and composes with And,
Or, and Not. Predicates are also used outside this package, for
example as the success pattern for synthetic status errors.
*/
package classify
