package lexer

import "strings"

// Splitter walks a string and hands out runs of characters that are not in
// a delimiter set. It is finite and cannot be rewound: once the input is
// exhausted every call to Next returns "".
type Splitter struct {
	rest     string // unread remainder of the input
	delims   string
	consumed int // bytes of the original input before rest
	last     int // offset of the most recently returned token
}

// NewSplitter creates a Splitter over s that treats every byte in delims as
// a separator.
func NewSplitter(s, delims string) *Splitter {
	return &Splitter{rest: s, delims: delims, last: -1}
}

// Next returns the next token. The result is a substring of the input
// passed to NewSplitter, not a copy.
func (s *Splitter) Next() string {
	begin := indexNotAny(s.rest, s.delims)
	if begin < 0 {
		s.consumed += len(s.rest)
		s.rest = s.rest[len(s.rest):]
		s.last = -1
		return ""
	}

	end := strings.IndexAny(s.rest[begin:], s.delims)
	if end < 0 {
		end = len(s.rest)
	} else {
		end += begin
	}

	tok := s.rest[begin:end]
	s.last = s.consumed + begin
	s.consumed += end
	s.rest = s.rest[end:]
	return tok
}

// Offset returns the byte offset of the last token returned by Next, or -1
// if Next has not produced a token yet or the input is exhausted.
func (s *Splitter) Offset() int {
	return s.last
}

// Done reports whether the input has been fully consumed.
func (s *Splitter) Done() bool {
	return indexNotAny(s.rest, s.delims) < 0
}

func indexNotAny(s, chars string) int {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(chars, s[i]) < 0 {
			return i
		}
	}
	return -1
}
