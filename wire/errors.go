// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package wire

import (
	"errors"
	"fmt"
)

// ErrEndOfStream is returned when a reader is asked for more bytes after the
// transport signaled the end of the stream.
var ErrEndOfStream = errors.New("nanosock: reading from a closed stream")

// ConnectError is returned when a transport could not be established.
type ConnectError struct {
	Host string
	Port int
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("nanosock: could not connect to %s: %v", e.Host, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// SendError is returned when a payload could not be written in full. Partial
// writes are not retried.
type SendError struct {
	Written int
	Len     int
	Err     error
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("nanosock: error sending data: wrote %d of %d bytes", e.Written, e.Len)
	}
	return fmt.Sprintf("nanosock: error sending data: wrote %d of %d bytes: %v", e.Written, e.Len, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// ReceiveError wraps a hard I/O failure, including an expired receive
// deadline, reported by a transport.
type ReceiveError struct {
	Err error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("nanosock: error receiving data: %v", e.Err)
}

func (e *ReceiveError) Unwrap() error { return e.Err }
