// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build unix

package mux

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// pollSet is the descriptor set handed to poll(2). Entries are appended in
// the same order as the multiplexer's exchanges and never removed.
type pollSet struct {
	fds []unix.PollFd
}

func (p *pollSet) add(fd int) {
	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
}

// wait blocks until a descriptor is readable or timeout elapses, returning
// the number of ready descriptors. A negative timeout waits forever.
// Interrupted calls are resumed with whatever time is left.
func (p *pollSet) wait(timeout time.Duration) (int, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		ms := -1
		if timeout >= 0 {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			// Round up so a sub-millisecond remainder still waits.
			ms = int((remaining + time.Millisecond - 1) / time.Millisecond)
		}

		n, err := unix.Poll(p.fds, ms)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return n, err
	}
}

// disable stops watching entry i. poll(2) skips negative descriptors.
func (p *pollSet) disable(i int) {
	p.fds[i].Fd = -1
	p.fds[i].Revents = 0
}

func (p *pollSet) active(i int) bool { return p.fds[i].Fd >= 0 }

func (p *pollSet) readable(i int) bool {
	return p.fds[i].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
}
