// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// Peer is a loopback TCP server. Every accepted connection is handed to the
// handler on its own goroutine; all goroutines and connections are released
// when the test ends.
type Peer struct {
	Host string
	Port int

	ln    net.Listener
	group errgroup.Group

	mu     sync.Mutex
	conns  []net.Conn
	closed bool
}

// NewPeer starts a peer. The handler must return once the connection it was
// given is closed.
func NewPeer(t testing.TB, handler func(net.Conn)) *Peer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p := &Peer{Host: host, ln: ln}
	p.Port, err = strconv.Atoi(port)
	require.NoError(t, err)

	p.group.Go(func() error {
		for {
			c, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}
			p.mu.Lock()
			if p.closed {
				p.mu.Unlock()
				c.Close()
				return nil
			}
			p.conns = append(p.conns, c)
			p.mu.Unlock()
			p.group.Go(func() error {
				handler(c)
				return nil
			})
		}
	})

	t.Cleanup(func() {
		p.Close()
	})
	return p
}

// Close stops accepting, closes every accepted connection and waits for all
// handlers to return.
func (p *Peer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.ln.Close()
	for _, c := range p.conns {
		c.Close()
	}
	p.conns = nil
	p.mu.Unlock()
	return p.group.Wait()
}
