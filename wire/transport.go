// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// Transport is a single byte stream owned by one exchange.
type Transport interface {
	// Receive reads into p. It returns 0 and a nil error once the peer has
	// closed the stream.
	Receive(p []byte) (int, error)

	// SendAll writes all of p. A short write is an error.
	SendAll(p []byte) error

	// Close releases the stream. It is safe to call more than once.
	Close() error
}

// TCPTransport is a Transport over a TCP connection.
type TCPTransport struct {
	conn    *net.TCPConn
	raw     syscall.RawConn
	host    string
	timeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to host:port. A non-zero timeout bounds the dial as well as
// every subsequent receive and send.
func Dial(ctx context.Context, host string, port int, timeout time.Duration) (*TCPTransport, error) {
	d := net.Dialer{Timeout: timeout}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Host: host, Port: port, Err: err}
	}

	tc, ok := c.(*net.TCPConn)
	if !ok {
		c.Close()
		return nil, &ConnectError{Host: host, Port: port, Err: fmt.Errorf("unexpected connection type %T", c)}
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		tc.Close()
		return nil, &ConnectError{Host: host, Port: port, Err: err}
	}

	return &TCPTransport{
		conn:    tc,
		raw:     raw,
		host:    host,
		timeout: timeout,
	}, nil
}

// Host returns the host name the transport was dialed with.
func (t *TCPTransport) Host() string { return t.host }

// Fd returns the socket descriptor, for readiness polling only. Reads and
// writes must go through Receive and SendAll.
func (t *TCPTransport) Fd() (int, error) {
	var fd int
	err := t.raw.Control(func(s uintptr) {
		fd = int(s)
	})
	return fd, err
}

func (t *TCPTransport) Receive(p []byte) (int, error) {
	if t.timeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
			return 0, &ReceiveError{Err: err}
		}
	}

	n, err := t.conn.Read(p)
	if n > 0 {
		// Any error is reported again by the next read.
		return n, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return 0, nil
	}
	return 0, &ReceiveError{Err: err}
}

func (t *TCPTransport) SendAll(p []byte) error {
	if t.timeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
			return &SendError{Len: len(p), Err: err}
		}
	}

	n, err := t.conn.Write(p)
	if err != nil || n != len(p) {
		return &SendError{Written: n, Len: len(p), Err: err}
	}
	return nil
}

func (t *TCPTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
