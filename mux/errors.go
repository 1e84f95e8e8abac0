// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mux

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned by Wait when no connection became readable in time.
var ErrTimeout = errors.New("nanosock: wait timeout")

// ErrUnknownExchange is returned by Release for an exchange the multiplexer
// does not own.
var ErrUnknownExchange = errors.New("nanosock: exchange not owned by this multiplexer")

// PollError wraps a failure of the readiness wait itself.
type PollError struct {
	Err error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("nanosock: could not poll: %v", e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }
