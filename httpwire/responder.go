// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package httpwire

import (
	"strconv"
	"strings"
)

// Responder is told about each part of a response as soon as it was read.
// Calls happen synchronously from Exchange.Advance, in wire order.
type Responder interface {
	Version(version string)
	Code(code string)
	// Header is called once per header line; key is lower-case.
	Header(key, val string)
	// Body is called once per response with exactly Content-Length bytes.
	// The slice is owned by the Responder.
	Body(body []byte)
}

// HeaderField is one header line of a response.
type HeaderField struct {
	Key   string
	Value string
}

// Response is a Responder that records a single response.
type Response struct {
	Proto   string
	Status  string
	Headers []HeaderField
	Content []byte

	// Complete is set once the body was reported.
	Complete bool
}

var _ Responder = (*Response)(nil)

func (r *Response) Version(version string) { r.Proto = version }

func (r *Response) Code(code string) { r.Status = code }

func (r *Response) Header(key, val string) {
	r.Headers = append(r.Headers, HeaderField{Key: key, Value: val})
}

func (r *Response) Body(body []byte) {
	r.Content = body
	r.Complete = true
}

// Get returns the first value recorded for key, matched case-insensitively.
func (r *Response) Get(key string) string {
	key = strings.ToLower(key)
	for _, h := range r.Headers {
		if h.Key == key {
			return h.Value
		}
	}
	return ""
}

// StatusCode parses the recorded status code.
func (r *Response) StatusCode() (int, error) {
	return strconv.Atoi(r.Status)
}

// Reset clears r so it can record the next response.
func (r *Response) Reset() {
	*r = Response{}
}
