// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package httpwire

import "fmt"

// State is the position of an Exchange in its request/response cycle.
type State int

const (
	// StateSending is both the initial state and the state an exchange returns
	// to once a response was fully read.
	StateSending State = iota
	StateVersion
	StateCode
	// StateFlair skips the reason phrase.
	StateFlair
	StateKey
	StateValue
	StateBody
)

func (s State) String() string {
	switch s {
	case StateSending:
		return "sending"
	case StateVersion:
		return "version"
	case StateCode:
		return "code"
	case StateFlair:
		return "flair"
	case StateKey:
		return "key"
	case StateValue:
		return "value"
	case StateBody:
		return "body"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
