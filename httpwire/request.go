// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package httpwire

import (
	"strconv"
)

const (
	crlf  = "\r\n"
	proto = "HTTP/1.1"
)

// encodeRequest renders the request line and headers of an HTTP/1.1 request:
//
//	METHOD SP PATH SP HTTP/1.1 CRLF [Content-Length: n CRLF] Host: host CRLF CRLF
//
// The body itself is written separately.
func encodeRequest(method, path, host string, bodyLen int) []byte {
	b := make([]byte, 0, len(method)+len(path)+len(host)+64)
	b = append(b, method...)
	b = append(b, ' ')
	b = append(b, path...)
	b = append(b, ' ')
	b = append(b, proto...)
	b = append(b, crlf...)
	if bodyLen > 0 {
		b = append(b, "Content-Length: "...)
		b = strconv.AppendInt(b, int64(bodyLen), 10)
		b = append(b, crlf...)
	}
	b = append(b, "Host: "...)
	b = append(b, host...)
	b = append(b, crlf...)
	b = append(b, crlf...)
	return b
}
