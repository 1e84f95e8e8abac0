// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package wire

// Sink receives the bytes of a field as they are read. The segment is
// borrowed from a ReceiveBuffer and must be copied if retained.
type Sink func(segment []byte)

// DelimitedReader pulls bytes from a ReceiveBuffer until its Marker reports a
// delimiter. It can be interrupted at any byte and resumed by calling Read
// again.
type DelimitedReader struct {
	marker Marker
}

func NewDelimitedReader(m Marker) *DelimitedReader {
	return &DelimitedReader{marker: m}
}

// Marker returns the marker bound to r.
func (r *DelimitedReader) Marker() Marker { return r.marker }

// Read consumes one window of buf. It reports true when the delimiter was
// reached; sink then received the final segment, delimiter included, and any
// bytes after the delimiter remain unread in buf. It reports false when the
// window ran out first; sink then received the partial segment, if any.
//
// sink is called at most once per call and may be nil. ErrEndOfStream is
// returned when buf can no longer be refilled.
func (r *DelimitedReader) Read(buf *ReceiveBuffer, t Transport, sink Sink, blocking bool) (bool, error) {
	if !buf.Alive() {
		return false, ErrEndOfStream
	}

	// A marker that is satisfied without any input, such as a zero count.
	if r.marker.Matched() {
		emit(sink, nil)
		return true, nil
	}

	window, err := buf.Read(t, blocking)
	if err != nil {
		return false, err
	}

	for i, c := range window {
		r.marker.Check(c)
		if r.marker.Matched() {
			emit(sink, window[:i+1])
			buf.ResetTo(i + 1)
			return true, nil
		}
	}

	if len(window) > 0 {
		emit(sink, window)
	}
	return false, nil
}

func emit(sink Sink, segment []byte) {
	if sink != nil {
		sink(segment)
	}
}
