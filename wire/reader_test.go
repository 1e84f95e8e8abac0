// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package wire_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/nanosock/internal/testutil"
	"github.com/hashicorp/nanosock/wire"
)

// readFields drives r until the stream ends and returns the completed fields
// plus whatever partial field was left when it ended.
func readFields(t *testing.T, r *wire.DelimitedReader, tr wire.Transport, size int) ([]string, string) {
	t.Helper()

	buf := wire.NewReceiveBuffer(size)
	var fields []string
	var cur []byte
	for {
		done, err := r.Read(buf, tr, func(seg []byte) {
			cur = append(cur, seg...)
		}, true)
		if errors.Is(err, wire.ErrEndOfStream) {
			return fields, string(cur)
		}
		require.NoError(t, err)
		if done {
			fields = append(fields, string(cur))
			cur = nil
		}
	}
}

func TestDelimitedReader_ChunkingInvariance(t *testing.T) {
	t.Parallel()

	const input = "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhi\r\n\r\ntrailing"

	markers := map[string]func() wire.Marker{
		"crlf":      func() wire.Marker { return wire.NewSequence("\r\n") },
		"blankline": func() wire.Marker { return wire.NewSequence("\r\n\r\n") },
		"space":     func() wire.Marker { return wire.NewSequence(" ") },
		"key":       func() wire.Marker { return wire.NewAnyOf(wire.NewSequence(":"), wire.NewSequence("\r\n")) },
		"count":     func() wire.Marker { return wire.NewCount(5) },
	}

	for name, mk := range markers {
		mk := mk
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			wantFields, wantRest := readFields(t, wire.NewDelimitedReader(mk()), testutil.NewChunkTransport(input), 0)
			require.NotEmpty(t, wantFields)

			for i := 1; i < len(input); i++ {
				for j := i; j < len(input); j += 7 {
					chunks := testutil.Split(input, i, j)
					fields, rest := readFields(t, wire.NewDelimitedReader(mk()), testutil.NewChunkTransport(chunks...), 0)
					require.Equal(t, wantFields, fields, "split at %d,%d", i, j)
					require.Equal(t, wantRest, rest, "split at %d,%d", i, j)
				}
			}

			// A tiny buffer forces refills inside every delimiter.
			fields, rest := readFields(t, wire.NewDelimitedReader(mk()), testutil.NewChunkTransport(input), 1)
			require.Equal(t, wantFields, fields)
			require.Equal(t, wantRest, rest)
		})
	}
}

func TestDelimitedReader_FieldsIncludeDelimiter(t *testing.T) {
	t.Parallel()

	r := wire.NewDelimitedReader(wire.NewSequence("\r\n"))
	fields, rest := readFields(t, r, testutil.NewChunkTransport("a\r\nbc\r\nd"), 0)
	require.Equal(t, []string{"a\r\n", "bc\r\n"}, fields)
	require.Equal(t, "d", rest)
}

func TestDelimitedReader_LeavesBytesAfterDelimiter(t *testing.T) {
	t.Parallel()

	tr := testutil.NewChunkTransport("GET /x")
	buf := wire.NewReceiveBuffer(0)
	r := wire.NewDelimitedReader(wire.NewSequence(" "))

	var got string
	done, err := r.Read(buf, tr, func(seg []byte) { got = string(seg) }, true)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, "GET ", got)
	require.Equal(t, 2, buf.Unread())
}

func TestDelimitedReader_ZeroCountMatchesWithoutConsuming(t *testing.T) {
	t.Parallel()

	tr := testutil.NewChunkTransport("abc")
	buf := wire.NewReceiveBuffer(0)
	r := wire.NewDelimitedReader(wire.NewCount(0))

	calls := 0
	done, err := r.Read(buf, tr, func(seg []byte) {
		calls++
		require.Empty(t, seg)
	}, true)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, 1, calls)
	require.Equal(t, 0, tr.Receives)
}

func TestDelimitedReader_NonBlockingWhenDrained(t *testing.T) {
	t.Parallel()

	tr := testutil.NewChunkTransport("abc")
	buf := wire.NewReceiveBuffer(0)
	r := wire.NewDelimitedReader(wire.NewSequence("\n"))

	called := false
	done, err := r.Read(buf, tr, func([]byte) { called = true }, false)
	require.NoError(t, err)
	require.False(t, done)
	require.False(t, called)
	require.Equal(t, 0, tr.Receives)

	// A blocking call emits the partial field.
	var got string
	done, err = r.Read(buf, tr, func(seg []byte) { got = string(seg) }, true)
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, "abc", got)
}

func TestDelimitedReader_EndOfStream(t *testing.T) {
	t.Parallel()

	tr := testutil.NewChunkTransport()
	buf := wire.NewReceiveBuffer(0)
	r := wire.NewDelimitedReader(wire.NewSequence("\n"))

	done, err := r.Read(buf, tr, nil, true)
	require.NoError(t, err)
	require.False(t, done)

	_, err = r.Read(buf, tr, nil, true)
	require.ErrorIs(t, err, wire.ErrEndOfStream)
}

func TestDelimitedReader_ReceiveError(t *testing.T) {
	t.Parallel()

	recvErr := &wire.ReceiveError{Err: errors.New("i/o timeout")}
	tr := testutil.NewChunkTransport()
	tr.ReceiveErr = recvErr
	buf := wire.NewReceiveBuffer(0)
	r := wire.NewDelimitedReader(wire.NewSequence("\n"))

	_, err := r.Read(buf, tr, nil, true)
	var re *wire.ReceiveError
	require.ErrorAs(t, err, &re)

	_, err = r.Read(buf, tr, nil, true)
	require.ErrorIs(t, err, wire.ErrEndOfStream)
}
