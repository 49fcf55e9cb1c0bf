package qualconv

import (
	"github.com/raymyers/qualcheck/pkg/ctypes"
	"github.com/raymyers/qualcheck/pkg/parser"
)

// Reason says why a conversion was accepted or rejected
type Reason int

const (
	ReasonOK Reason = iota
	ReasonInvalidSource
	ReasonInvalidTarget
	ReasonArrayTarget
	ReasonShapeMismatch
	ReasonQualifiers
)

var reasonNames = []string{
	"ok",
	"invalid source",
	"invalid target",
	"array target",
	"shape mismatch",
	"insufficient qualification",
}

func (r Reason) String() string {
	if int(r) >= 0 && int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// Verdict is the detailed outcome of a conversion check
type Verdict struct {
	Source      ctypes.Shape
	Target      ctypes.Shape
	Combined    ctypes.Shape // invalid unless both shapes could be combined
	Convertible bool
	Reason      Reason
	Level       int   // first qualifier index the target is missing, or -1
	SourceErr   error // parse error for the source declarator
	TargetErr   error // parse error for the target declarator
}

// Explain is CheckConvertible for callers that need to tell parse failures,
// shape mismatches and missing qualifiers apart.
func Explain(source, target string) Verdict {
	from, srcErr := parser.Decompose(source)
	to, dstErr := parser.Decompose(target)

	v := ExplainShapes(from, to)
	v.SourceErr = srcErr
	v.TargetErr = dstErr
	return v
}

// ExplainShapes is Explain for already decomposed shapes.
func ExplainShapes(from, to ctypes.Shape) Verdict {
	reason, level := diagnose(from, to)
	return Verdict{
		Source:      from,
		Target:      to,
		Combined:    Combine(from, to),
		Convertible: reason == ReasonOK,
		Reason:      reason,
		Level:       level,
	}
}
