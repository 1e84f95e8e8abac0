// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"errors"
)

// ChunkTransport is an in-memory wire.Transport. Each Receive hands out the
// next scripted chunk, split further if it does not fit, and reports the end
// of the stream once the script is exhausted. Everything sent is recorded.
type ChunkTransport struct {
	chunks [][]byte
	sent   bytes.Buffer

	// ReceiveErr, when set, is returned once the chunks run out instead of
	// the end of the stream.
	ReceiveErr error
	// SendErr, when set, fails every SendAll.
	SendErr error

	Receives int
	Closed   bool
}

func NewChunkTransport(chunks ...string) *ChunkTransport {
	t := &ChunkTransport{}
	t.Push(chunks...)
	return t
}

// Push appends chunks to the receive script. Empty chunks are dropped since
// an empty receive means the end of the stream.
func (t *ChunkTransport) Push(chunks ...string) {
	for _, c := range chunks {
		if c == "" {
			continue
		}
		t.chunks = append(t.chunks, []byte(c))
	}
}

// Pending is the number of scripted chunks not yet received.
func (t *ChunkTransport) Pending() int { return len(t.chunks) }

// Sent returns everything written so far.
func (t *ChunkTransport) Sent() string { return t.sent.String() }

// ResetSent forgets everything written so far.
func (t *ChunkTransport) ResetSent() { t.sent.Reset() }

func (t *ChunkTransport) Receive(p []byte) (int, error) {
	t.Receives++
	if len(t.chunks) == 0 {
		if t.ReceiveErr != nil {
			return 0, t.ReceiveErr
		}
		return 0, nil
	}
	n := copy(p, t.chunks[0])
	if n == len(t.chunks[0]) {
		t.chunks = t.chunks[1:]
	} else {
		t.chunks[0] = t.chunks[0][n:]
	}
	return n, nil
}

func (t *ChunkTransport) SendAll(p []byte) error {
	if t.Closed {
		return errors.New("transport closed")
	}
	if t.SendErr != nil {
		return t.SendErr
	}
	t.sent.Write(p)
	return nil
}

func (t *ChunkTransport) Close() error {
	t.Closed = true
	return nil
}

// Split cuts s at the given offsets, e.g. Split("abcdef", 2, 4) returns
// "ab", "cd", "ef".
func Split(s string, offsets ...int) []string {
	var out []string
	prev := 0
	for _, off := range offsets {
		out = append(out, s[prev:off])
		prev = off
	}
	return append(out, s[prev:])
}
