// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pixlrequest

import (
	"encoding/xml"

	"github.com/goccy/go-json"

	"github.com/jhuckaby/pixl-request/request"
)

// JSON uses the specified Doer to exchange JSON documents with the
// specified URL.
//
// If in is non-nil it is marshaled and sent as the request body with
// Content-Type application/json. If out is non-nil and the execution
// produced a non-empty body, the body is unmarshaled into out.
//
// An unmarshaling failure is reported as the returned error, but the
// execution, with its raw body, is still returned for inspection. When
// the execution itself failed, its error is returned and out is left
// untouched.
func JSON(d Doer, method, url string, in, out interface{}) (*request.Execution, error) {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return nil, err
		}
	}
	p, err := request.NewPlan(method, url, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		p.Header.Set("Content-Type", "application/json")
	}
	p.Header.Set("Accept", "application/json")
	e, err := d.Do(p)
	if err != nil || out == nil || len(e.Body) == 0 {
		return e, err
	}
	return e, e.JSON(out)
}

// XML uses the specified Doer to exchange XML documents with the
// specified URL. It follows the same contract as JSON, with
// Content-Type and Accept set to application/xml.
func XML(d Doer, method, url string, in, out interface{}) (*request.Execution, error) {
	var body []byte
	if in != nil {
		var err error
		body, err = xml.Marshal(in)
		if err != nil {
			return nil, err
		}
	}
	p, err := request.NewPlan(method, url, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		p.Header.Set("Content-Type", "application/xml")
	}
	p.Header.Set("Accept", "application/xml")
	e, err := d.Do(p)
	if err != nil || out == nil || len(e.Body) == 0 {
		return e, err
	}
	return e, xml.Unmarshal(e.Body, out)
}

// JSON exchanges JSON documents with the specified URL using the same
// policies followed by Do. See the package-level JSON function for the
// in and out contract.
func (c *Client) JSON(method, url string, in, out interface{}) (*request.Execution, error) {
	return JSON(c, method, url, in, out)
}

// XML exchanges XML documents with the specified URL using the same
// policies followed by Do. See the package-level XML function for the
// in and out contract.
func (c *Client) XML(method, url string, in, out interface{}) (*request.Execution, error) {
	return XML(c, method, url, in, out)
}
