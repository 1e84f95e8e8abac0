// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
)

// Request is what an HTTPHandler saw of one request.
type Request struct {
	Line    string
	Headers []string
	Body    string
}

// HTTPHandler returns a Peer handler that reads requests off the connection
// one at a time and answers each with the bytes returned by respond.
// Returning an empty response leaves the request unanswered.
func HTTPHandler(respond func(Request) string) func(net.Conn) {
	return func(c net.Conn) {
		br := bufio.NewReader(c)
		for {
			req, err := readRequest(br)
			if err != nil {
				return
			}
			if resp := respond(req); resp != "" {
				if _, err := io.WriteString(c, resp); err != nil {
					return
				}
			}
		}
	}
}

// StaticResponse answers every request with resp.
func StaticResponse(resp string) func(net.Conn) {
	return HTTPHandler(func(Request) string { return resp })
}

func readRequest(br *bufio.Reader) (Request, error) {
	var req Request
	line, err := br.ReadString('\n')
	if err != nil {
		return req, err
	}
	req.Line = strings.TrimRight(line, "\r\n")

	length := 0
	for {
		h, err := br.ReadString('\n')
		if err != nil {
			return req, err
		}
		h = strings.TrimRight(h, "\r\n")
		if h == "" {
			break
		}
		req.Headers = append(req.Headers, h)
		if k, v, ok := strings.Cut(h, ":"); ok && strings.EqualFold(k, "content-length") {
			length, _ = strconv.Atoi(strings.TrimSpace(v))
		}
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(br, body); err != nil {
		return req, err
	}
	req.Body = string(body)
	return req, nil
}
