// Package ctypes defines the decomposed form of a C pointer/array declarator,
// following the cv0 P0 cv1 P1 ... cv(n-1) P(n-1) cvn U notation of the
// qualification conversion rules.
package ctypes

import "strings"

// Level is one indirection step of a declarator
type Level int

const (
	PointerTo Level = iota
	ArrayOf
)

func (l Level) String() string {
	switch l {
	case PointerTo:
		return "*"
	case ArrayOf:
		return "[]"
	}
	return "<UNDEF>"
}

// Base is the type a declarator bottoms out in
type Base int

const (
	Undef Base = iota
	Char
)

func (b Base) String() string {
	if b == Char {
		return "char"
	}
	return "<UNDEF>"
}

// Shape is an immutable decomposed declarator.
//
// quals[0] qualifies the declared entity itself and is never constrained by
// conversions. levels[0] is the outermost indirection and quals[i+1] is the
// qualifier of the type levels[i] points to (or holds elements of), so the
// last qualifier belongs to the base type.
type Shape struct {
	valid  bool
	quals  []bool
	levels []Level
	base   Base
}

// Invalid returns the shape used to signal a malformed declarator
func Invalid() Shape {
	return Shape{}
}

// NewShape builds a valid shape, copying its arguments. It returns Invalid()
// if len(quals) != len(levels)+1 or base is Undef.
func NewShape(base Base, quals []bool, levels []Level) Shape {
	if base == Undef || len(quals) != len(levels)+1 {
		return Invalid()
	}
	return Shape{
		valid:  true,
		quals:  append([]bool(nil), quals...),
		levels: append([]Level(nil), levels...),
		base:   base,
	}
}

// Valid reports whether the shape came from a well-formed declarator
func (s Shape) Valid() bool { return s.valid }

// Base returns the base type
func (s Shape) Base() Base { return s.base }

// Depth returns the number of indirection levels
func (s Shape) Depth() int { return len(s.levels) }

// Level returns the i-th indirection, counting from the outermost
func (s Shape) Level(i int) Level { return s.levels[i] }

// Qual returns the i-th qualifier; Qual(0) is the top-level qualifier and
// Qual(Depth()) qualifies the base type.
func (s Shape) Qual(i int) bool { return s.quals[i] }

// Levels returns a copy of the indirection sequence
func (s Shape) Levels() []Level {
	return append([]Level(nil), s.levels...)
}

// Quals returns a copy of the qualifier sequence
func (s Shape) Quals() []bool {
	return append([]bool(nil), s.quals...)
}

// IsArray reports whether the outermost construct is an array
func (s Shape) IsArray() bool {
	return len(s.levels) > 0 && s.levels[0] == ArrayOf
}

// String renders the shape in cv0 P0 ... cvn U order, e.g. "* const * char"
// for "char *const *".
func (s Shape) String() string {
	if !s.valid {
		return "<INVALID>"
	}

	var b strings.Builder
	for i, level := range s.levels {
		if s.quals[i] {
			b.WriteString("const ")
		}
		b.WriteString(level.String())
		b.WriteByte(' ')
	}
	if s.quals[len(s.quals)-1] {
		b.WriteString("const ")
	}
	b.WriteString(s.base.String())
	return b.String()
}

// Declarator renders the shape back into C declarator syntax, e.g.
// "const char *const *". Array levels inherit their qualifier, so it is
// only printed for the level an array holds.
func (s Shape) Declarator() string {
	if !s.valid {
		return "<INVALID>"
	}

	var b strings.Builder
	n := len(s.levels)
	if s.quals[n] {
		b.WriteString("const ")
	}
	b.WriteString(s.base.String())
	for i := n - 1; i >= 0; i-- {
		switch s.levels[i] {
		case PointerTo:
			b.WriteString(" *")
			if s.quals[i] {
				b.WriteString("const")
			}
		case ArrayOf:
			b.WriteString("[]")
		}
	}
	return b.String()
}

// Equal checks if two shapes are identical, qualifiers included
func Equal(a, b Shape) bool {
	if a.valid != b.valid {
		return false
	}
	if !a.valid {
		return true
	}
	if a.base != b.base || len(a.levels) != len(b.levels) {
		return false
	}
	for i, level := range a.levels {
		if level != b.levels[i] {
			return false
		}
	}
	for i, q := range a.quals {
		if q != b.quals[i] {
			return false
		}
	}
	return true
}
