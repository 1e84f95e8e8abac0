// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package wire

// Marker recognises a delimiter in a byte stream fed to it one byte at a
// time. The set of markers is closed: Sequence, Count and AnyOf.
type Marker interface {
	// Check consumes one byte.
	Check(c byte)

	// Matched reports whether a delimiter boundary was reached with the last
	// byte. A true result resets the marker, so it must be treated as a
	// one-shot edge.
	Matched() bool

	// Reset discards any partial match.
	Reset()

	marker()
}

// Sequence matches an exact byte pattern. Partial matches survive across
// calls, so a pattern split between two reads is still found, and
// self-overlapping patterns resynchronise correctly.
type Sequence struct {
	pattern []byte
	// fail[i] is the length of the longest proper border of pattern[:i+1].
	fail []int
	i    int
}

// NewSequence returns a marker matching pattern. An empty pattern is always
// matched.
func NewSequence(pattern string) *Sequence {
	p := []byte(pattern)
	fail := make([]int, len(p))
	k := 0
	for i := 1; i < len(p); i++ {
		for k > 0 && p[i] != p[k] {
			k = fail[k-1]
		}
		if p[i] == p[k] {
			k++
		}
		fail[i] = k
	}
	return &Sequence{pattern: p, fail: fail}
}

// Pattern returns the delimiter matched by s.
func (s *Sequence) Pattern() string { return string(s.pattern) }

func (s *Sequence) Check(c byte) {
	if len(s.pattern) == 0 {
		return
	}
	if s.i == len(s.pattern) {
		// A full match nobody collected yet; keep scanning from its border.
		s.i = s.fail[s.i-1]
	}
	for s.i > 0 && s.pattern[s.i] != c {
		s.i = s.fail[s.i-1]
	}
	if s.pattern[s.i] == c {
		s.i++
	}
}

func (s *Sequence) Matched() bool {
	if s.i == len(s.pattern) {
		s.i = 0
		return true
	}
	return false
}

func (s *Sequence) Reset() { s.i = 0 }

func (*Sequence) marker() {}

// Count matches once n bytes have been seen.
type Count struct {
	n    int
	seen int
}

// NewCount returns a marker matching after n bytes. A zero count is matched
// without consuming anything.
func NewCount(n int) *Count {
	return &Count{n: n}
}

// SetTarget re-arms the marker for n bytes.
func (c *Count) SetTarget(n int) {
	c.n = n
	c.seen = 0
}

// Target returns the byte count the marker is armed for.
func (c *Count) Target() int { return c.n }

func (c *Count) Check(byte) { c.seen++ }

func (c *Count) Matched() bool {
	if c.seen >= c.n {
		c.seen = 0
		return true
	}
	return false
}

func (c *Count) Reset() { c.seen = 0 }

func (*Count) marker() {}

// AnyOf matches when any of its markers matches. Every byte is given to every
// marker.
type AnyOf struct {
	markers []Marker
}

func NewAnyOf(markers ...Marker) *AnyOf {
	return &AnyOf{markers: markers}
}

func (a *AnyOf) Check(c byte) {
	for _, m := range a.markers {
		m.Check(c)
	}
}

// Matched asks every marker, so each one that matched is reset.
func (a *AnyOf) Matched() bool {
	matched := false
	for _, m := range a.markers {
		if m.Matched() {
			matched = true
		}
	}
	return matched
}

func (a *AnyOf) Reset() {
	for _, m := range a.markers {
		m.Reset()
	}
}

func (*AnyOf) marker() {}
