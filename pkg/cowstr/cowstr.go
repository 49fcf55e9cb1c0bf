// Package cowstr implements a copy-on-write byte string.
//
// Clones and snapshots share one buffer and count themselves as its holders.
// A String mutates the buffer in place only while it is the sole holder;
// otherwise it first moves to a private copy, so other holders never observe
// the change.
package cowstr

import (
	"sync/atomic"

	"github.com/raymyers/qualcheck/pkg/invariant"
)

// capacityFactor is how much room a reallocation leaves for further growth.
const capacityFactor = 2

type buffer struct {
	data    []byte // len(data) is the capacity
	holders atomic.Int32
}

func newBuffer(capacity int) *buffer {
	b := &buffer{data: make([]byte, capacity)}
	b.holders.Store(1)
	return b
}

func (b *buffer) acquire() *buffer {
	b.holders.Add(1)
	return b
}

func (b *buffer) release() {
	b.holders.Add(-1)
}

func (b *buffer) unique() bool {
	return b.holders.Load() == 1
}

// String is a mutable handle on a possibly shared buffer. A String must not
// be used from several goroutines at once, but distinct Strings sharing a
// buffer may be.
type String struct {
	size int
	buf  *buffer
}

// New creates a String holding a private copy of s.
func New(s string) *String {
	buf := newBuffer(len(s))
	copy(buf.data, s)
	return &String{size: len(s), buf: buf}
}

// Clone returns a String sharing s's buffer. Nothing is copied until one of
// them is mutated.
func (s *String) Clone() *String {
	return &String{size: s.size, buf: s.buf.acquire()}
}

// Snapshot returns an immutable view of the current contents.
func (s *String) Snapshot() *Snapshot {
	return &Snapshot{data: s.buf.data[:s.size], buf: s.buf.acquire()}
}

// Release gives up s's hold on its buffer. s must not be used afterwards.
// Releasing is optional; it only lets the remaining holders mutate without
// copying.
func (s *String) Release() {
	if s.buf != nil {
		s.buf.release()
		s.buf = nil
		s.size = 0
	}
}

func (s *String) Len() int { return s.size }

func (s *String) Cap() int { return len(s.buf.data) }

// At returns the i-th byte.
func (s *String) At(i int) byte {
	invariant.Precondition(i >= 0 && i < s.size, "index %d out of range [0, %d)", i, s.size)
	return s.buf.data[i]
}

// Set replaces the i-th byte, copying the buffer first if it is shared.
func (s *String) Set(i int, c byte) {
	invariant.Precondition(i >= 0 && i < s.size, "index %d out of range [0, %d)", i, s.size)
	s.ensureUnique()
	s.buf.data[i] = c
}

func (s *String) String() string {
	return string(s.buf.data[:s.size])
}

// Append adds str to the end of s.
func (s *String) Append(str string) {
	s.concat(str, false)
}

// Prepend adds str to the front of s.
func (s *String) Prepend(str string) {
	s.concat(str, true)
}

// Concat returns a new String holding s followed by tail; s is unchanged.
func (s *String) Concat(tail string) *String {
	out := s.Clone()
	out.Append(tail)
	return out
}

// ConcatString returns a new String holding s followed by other.
func (s *String) ConcatString(other *String) *String {
	snp := other.Snapshot()
	defer snp.Release()
	return s.Concat(snp.String())
}

// Join returns a new String holding head followed by s; s is unchanged.
func Join(head string, s *String) *String {
	out := s.Clone()
	out.Prepend(head)
	return out
}

func (s *String) ensureUnique() {
	if !s.buf.unique() {
		s.reallocate(s.size, len(s.buf.data))
	}
}

// reallocate moves s to a private buffer of the given capacity keeping the
// first size bytes.
func (s *String) reallocate(size, capacity int) {
	invariant.Precondition(s.size >= size, "cannot grow from %d to %d bytes by copying", s.size, size)
	invariant.Precondition(capacity >= size, "capacity %d below size %d", capacity, size)

	buf := newBuffer(capacity)
	copy(buf.data, s.buf.data[:size])
	s.buf.release()
	s.buf = buf
	s.size = size
}

func (s *String) concat(str string, prepend bool) {
	newSize := s.size + len(str)

	if newSize <= len(s.buf.data) && s.buf.unique() {
		data := s.buf.data
		if prepend {
			copy(data[len(str):newSize], data[:s.size])
			copy(data, str)
		} else {
			copy(data[s.size:newSize], str)
		}
		s.size = newSize
		return
	}

	buf := newBuffer(newSize * capacityFactor)
	if prepend {
		copy(buf.data, str)
		copy(buf.data[len(str):], s.buf.data[:s.size])
	} else {
		copy(buf.data, s.buf.data[:s.size])
		copy(buf.data[s.size:], str)
	}
	s.buf.release()
	s.buf = buf
	s.size = newSize
}

// Snapshot is an immutable view that shares ownership of a String's buffer.
// Its contents never change, even when the String it came from is mutated.
type Snapshot struct {
	data     []byte
	buf      *buffer
	released atomic.Bool
}

func (p *Snapshot) String() string {
	return string(p.data)
}

func (p *Snapshot) Len() int { return len(p.data) }

// Release gives up the snapshot's hold on the buffer. It is safe to call more
// than once, but the snapshot must not be read afterwards.
func (p *Snapshot) Release() {
	if p.released.CompareAndSwap(false, true) {
		p.buf.release()
	}
}
