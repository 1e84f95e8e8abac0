// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package httpwire

import (
	"errors"
	"fmt"
)

// ErrProtocolMisuse is the class of errors returned when an Exchange is
// driven out of order.
var ErrProtocolMisuse = errors.New("nanosock: protocol misuse")

var (
	// ErrBadSend is returned by Send while an exchange is in flight.
	ErrBadSend = fmt.Errorf("%w: sending when a session is in progress", ErrProtocolMisuse)

	// ErrBadTransfer is returned by Advance when no request was sent.
	ErrBadTransfer = fmt.Errorf("%w: reading when nothing was sent", ErrProtocolMisuse)
)
