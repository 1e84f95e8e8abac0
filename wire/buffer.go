// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package wire

import (
	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
)

// DefaultBufferSize is the capacity of a ReceiveBuffer when none is given.
const DefaultBufferSize = 64 * 1024

// ReceiveBuffer stages bytes read from a Transport. It never copies unread
// bytes: every refill overwrites the backing storage, so a window returned by
// Read is only valid until the next refill.
//
// The offsets always satisfy mark <= cursor <= end <= len(storage).
type ReceiveBuffer struct {
	storage []byte

	// mark is where the window last returned by Read started.
	mark   int
	cursor int
	end    int

	// alive is cleared once the transport reported the end of the stream
	// or failed. It never becomes true again.
	alive bool

	logger hclog.Logger
}

// NewReceiveBuffer returns an empty, drained buffer. A size <= 0 selects
// DefaultBufferSize.
func NewReceiveBuffer(size int) *ReceiveBuffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &ReceiveBuffer{
		storage: make([]byte, size),
		alive:   true,
		logger:  hclog.NewNullLogger(),
	}
}

// SetLogger makes b trace every refill to l. A nil l silences it again.
func (b *ReceiveBuffer) SetLogger(l hclog.Logger) {
	if l == nil {
		l = hclog.NewNullLogger()
	}
	b.logger = l
}

// Alive reports whether the stream may still produce bytes.
func (b *ReceiveBuffer) Alive() bool { return b.alive }

// Drained reports whether every byte of the current fill has been consumed
// while the stream itself is still alive.
func (b *ReceiveBuffer) Drained() bool { return b.alive && b.cursor == b.end }

// Unread is the number of bytes of the current fill not yet consumed.
func (b *ReceiveBuffer) Unread() int { return b.end - b.cursor }

// Cap is the capacity of the backing storage.
func (b *ReceiveBuffer) Cap() int { return len(b.storage) }

// Read returns the unread window and marks all of it consumed; callers give
// back what they did not use with ResetTo.
//
// When the buffer is drained and blocking is false an empty window is
// returned without touching the transport. When blocking is true the
// transport is asked for a fresh fill. A zero-byte fill ends the stream.
func (b *ReceiveBuffer) Read(t Transport, blocking bool) ([]byte, error) {
	if b.Drained() {
		if !blocking {
			return b.storage[b.cursor:b.end:b.end], nil
		}

		n, err := t.Receive(b.storage)
		if err != nil {
			b.alive = false
			b.mark, b.cursor, b.end = 0, 0, 0
			b.logger.Trace("receive failed", "error", err)
			return nil, err
		}

		b.mark, b.cursor, b.end = 0, 0, n
		if n == 0 {
			b.alive = false
			b.logger.Trace("end of stream")
			metrics.IncrCounter([]string{"wire", "receive", "eof"}, 1)
		} else {
			b.logger.Trace("refilled receive buffer", "bytes", n)
			metrics.IncrCounter([]string{"wire", "receive", "bytes"}, float32(n))
		}
	}

	window := b.storage[b.cursor:b.end:b.end]
	b.mark = b.cursor
	b.cursor = b.end
	return window, nil
}

// ResetTo rewinds the cursor so that only the first n bytes of the window
// returned by the last Read count as consumed.
func (b *ReceiveBuffer) ResetTo(n int) {
	pos := b.mark + n
	if n < 0 || pos > b.end {
		panic("wire: ResetTo outside of the last window")
	}
	b.cursor = pos
}
