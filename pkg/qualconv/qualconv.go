// Package qualconv decides whether one decomposed declarator converts to
// another under the qualification conversion rules.
//
// For T1 = cv0 P0 cv1 P1 ... cvn U and T2 of the same shape, the conversion
// T1 -> T2 is allowed when T2 already carries every qualifier that the
// qualification-combined type of T1 and T2 does, ignoring cv0. The combined
// type ORs the qualifiers level by level and, if they differ at some level j,
// makes every level 0 < k < j const as well. That last step is what rejects
// char** -> const char**.
package qualconv

import (
	"github.com/raymyers/qualcheck/pkg/ctypes"
	"github.com/raymyers/qualcheck/pkg/invariant"
	"github.com/raymyers/qualcheck/pkg/parser"
)

// ShapeMatches reports whether from and to are both valid, have the same
// base and the same sequence of pointer/array levels. Qualifiers are ignored.
func ShapeMatches(from, to ctypes.Shape) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from.Base() != to.Base() || from.Depth() != to.Depth() {
		return false
	}
	for i := 0; i < from.Depth(); i++ {
		if from.Level(i) != to.Level(i) {
			return false
		}
	}
	return true
}

// Combine returns the qualification-combined type of from and to. The result
// is invalid when the inputs differ in depth or base, when either is invalid,
// or when to has an array where from has a pointer.
//
// Combine panics if the combined type does not have the shape of from; that
// can only be caused by a bug in Combine itself.
func Combine(from, to ctypes.Shape) ctypes.Shape {
	if !from.Valid() || !to.Valid() {
		return ctypes.Invalid()
	}
	if from.Depth() != to.Depth() || from.Base() != to.Base() {
		return ctypes.Invalid()
	}

	n := from.Depth()
	quals := make([]bool, n+1)
	levels := make([]ctypes.Level, n)

	// deepest index at which from and to disagree
	diff := 0
	for i := 0; i < n; i++ {
		if from.Level(i) == ctypes.PointerTo && to.Level(i) == ctypes.ArrayOf {
			return ctypes.Invalid()
		}

		// cv0 is unconstrained; it is combined like the others and never read
		quals[i] = from.Qual(i) || to.Qual(i)

		levels[i] = from.Level(i)
		if to.Level(i) == ctypes.ArrayOf {
			levels[i] = ctypes.ArrayOf
		}

		if from.Qual(i) != to.Qual(i) || from.Level(i) != to.Level(i) {
			diff = i
		}
	}

	quals[n] = from.Qual(n) || to.Qual(n)
	if from.Qual(n) != to.Qual(n) {
		diff = n
	}

	for k := 1; k < diff; k++ {
		quals[k] = true
	}

	combined := ctypes.NewShape(from.Base(), quals, levels)
	invariant.Postcondition(ShapeMatches(combined, from),
		"combined type %v must have the shape of %v", combined, from)
	return combined
}

// IsConvertible reports whether from converts to to. Invalid shapes, shape
// mismatches and array targets are never convertible.
func IsConvertible(from, to ctypes.Shape) bool {
	reason, _ := diagnose(from, to)
	return reason == ReasonOK
}

// CheckConvertible parses both declarators and reports whether source
// converts to target. Malformed declarators yield false.
func CheckConvertible(source, target string) bool {
	return IsConvertible(parser.Parse(source), parser.Parse(target))
}

// diagnose returns why from does or does not convert to to, along with the
// first offending qualifier index for ReasonQualifiers (-1 otherwise).
func diagnose(from, to ctypes.Shape) (Reason, int) {
	switch {
	case !from.Valid():
		return ReasonInvalidSource, -1
	case !to.Valid():
		return ReasonInvalidTarget, -1
	case to.IsArray():
		return ReasonArrayTarget, -1
	case !ShapeMatches(from, to):
		return ReasonShapeMismatch, -1
	}

	combined := Combine(from, to)
	if !combined.Valid() {
		return ReasonShapeMismatch, -1
	}

	// cv0 is not part of the conversion contract
	for i := 1; i <= to.Depth(); i++ {
		if combined.Qual(i) != to.Qual(i) {
			return ReasonQualifiers, i
		}
	}
	return ReasonOK, -1
}
