// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package wire_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/nanosock/internal/testutil"
	"github.com/hashicorp/nanosock/wire"
)

func TestReceiveBuffer_StartsDrained(t *testing.T) {
	t.Parallel()

	b := wire.NewReceiveBuffer(0)
	require.True(t, b.Alive())
	require.True(t, b.Drained())
	require.Equal(t, wire.DefaultBufferSize, b.Cap())
}

func TestReceiveBuffer_NonBlockingDoesNotTouchTransport(t *testing.T) {
	t.Parallel()

	tr := testutil.NewChunkTransport("abc")
	b := wire.NewReceiveBuffer(16)

	w, err := b.Read(tr, false)
	require.NoError(t, err)
	require.Empty(t, w)
	require.Equal(t, 0, tr.Receives)
}

func TestReceiveBuffer_ReadConsumesWindow(t *testing.T) {
	t.Parallel()

	tr := testutil.NewChunkTransport("hello")
	b := wire.NewReceiveBuffer(16)

	w, err := b.Read(tr, true)
	require.NoError(t, err)
	require.Equal(t, "hello", string(w))
	require.True(t, b.Drained())

	// Give back everything after "he".
	b.ResetTo(2)
	require.Equal(t, 3, b.Unread())
	require.False(t, b.Drained())

	w, err = b.Read(tr, false)
	require.NoError(t, err)
	require.Equal(t, "llo", string(w))
	require.Equal(t, 1, tr.Receives)

	// ResetTo is relative to the last window.
	b.ResetTo(1)
	w, err = b.Read(tr, false)
	require.NoError(t, err)
	require.Equal(t, "lo", string(w))
}

func TestReceiveBuffer_SplitsLargeChunks(t *testing.T) {
	t.Parallel()

	tr := testutil.NewChunkTransport("abcdefgh")
	b := wire.NewReceiveBuffer(3)

	var got []string
	for b.Alive() {
		w, err := b.Read(tr, true)
		require.NoError(t, err)
		if len(w) > 0 {
			got = append(got, string(w))
		}
	}
	require.Equal(t, []string{"abc", "def", "gh"}, got)
}

func TestReceiveBuffer_EndOfStreamIsTerminal(t *testing.T) {
	t.Parallel()

	tr := testutil.NewChunkTransport()
	b := wire.NewReceiveBuffer(8)

	w, err := b.Read(tr, true)
	require.NoError(t, err)
	require.Empty(t, w)
	require.False(t, b.Alive())
	require.False(t, b.Drained())

	tr.Push("late")
	_, err = b.Read(tr, true)
	require.NoError(t, err)
	require.False(t, b.Alive())
	require.Equal(t, 1, tr.Receives)
}

func TestReceiveBuffer_ReceiveErrorEndsStream(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tr := testutil.NewChunkTransport()
	tr.ReceiveErr = boom
	b := wire.NewReceiveBuffer(8)

	_, err := b.Read(tr, true)
	require.ErrorIs(t, err, boom)
	require.False(t, b.Alive())
}

func TestReceiveBuffer_ResetToOutsideWindowPanics(t *testing.T) {
	t.Parallel()

	tr := testutil.NewChunkTransport("ab")
	b := wire.NewReceiveBuffer(8)
	_, err := b.Read(tr, true)
	require.NoError(t, err)

	require.Panics(t, func() { b.ResetTo(3) })
}

func TestReceiveBuffer_TracesRefills(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	tr := testutil.NewChunkTransport("hello")
	b := wire.NewReceiveBuffer(16)
	b.SetLogger(testutil.LoggerWithOutput(t, &out))

	_, err := b.Read(tr, true)
	require.NoError(t, err)
	require.Contains(t, out.String(), "[TRACE]")
	require.Contains(t, out.String(), "refilled receive buffer: bytes=5")

	_, err = b.Read(tr, true)
	require.NoError(t, err)
	require.Contains(t, out.String(), "end of stream")

	// A nil logger silences the buffer again.
	b.SetLogger(nil)
	out.Reset()
	_, err = b.Read(tr, true)
	require.NoError(t, err)
	require.Empty(t, out.String())
}
