// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package mux

import (
	"errors"
	"time"
)

var errPollUnsupported = errors.New("readiness polling is not supported on this platform")

type pollSet struct {
	disabled []bool
}

func (p *pollSet) add(int) { p.disabled = append(p.disabled, false) }

func (p *pollSet) disable(i int) { p.disabled[i] = true }

func (p *pollSet) active(i int) bool { return !p.disabled[i] }

func (p *pollSet) wait(time.Duration) (int, error) { return 0, errPollUnsupported }

func (p *pollSet) readable(int) bool { return false }
