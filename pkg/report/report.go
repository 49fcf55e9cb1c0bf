// Package report renders decomposed shapes and conversion verdicts as plain
// text, YAML or canonical CBOR.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/raymyers/qualcheck/pkg/ctypes"
	"github.com/raymyers/qualcheck/pkg/qualconv"
	"gopkg.in/yaml.v3"
)

// Format selects the output encoding
type Format int

const (
	Text Format = iota
	YAML
	CBOR
)

var formatNames = map[string]Format{
	"text": Text,
	"yaml": YAML,
	"cbor": CBOR,
}

func (f Format) String() string {
	for name, v := range formatNames {
		if v == f {
			return name
		}
	}
	return "unknown"
}

// ErrUnknownFormat is returned by ParseFormat for unsupported names
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat maps "text", "yaml" or "cbor" to a Format
func ParseFormat(name string) (Format, error) {
	if f, ok := formatNames[strings.ToLower(name)]; ok {
		return f, nil
	}
	return Text, fmt.Errorf("%w %q (want text, yaml or cbor)", ErrUnknownFormat, name)
}

// ShapeDoc is the serialized form of one decomposed declarator
type ShapeDoc struct {
	Declarator string   `yaml:"declarator" cbor:"declarator"`
	Valid      bool     `yaml:"valid" cbor:"valid"`
	Shape      string   `yaml:"shape,omitempty" cbor:"shape,omitempty"`
	Canonical  string   `yaml:"canonical,omitempty" cbor:"canonical,omitempty"`
	Levels     []string `yaml:"levels,omitempty" cbor:"levels,omitempty"`
	Quals      []bool   `yaml:"quals,omitempty" cbor:"quals,omitempty"`
	Error      string   `yaml:"error,omitempty" cbor:"error,omitempty"`
}

// NewShapeDoc describes shape, parsed from declarator with error err
func NewShapeDoc(declarator string, shape ctypes.Shape, err error) ShapeDoc {
	doc := ShapeDoc{Declarator: declarator, Valid: shape.Valid()}
	if err != nil {
		doc.Error = err.Error()
	}
	if !shape.Valid() {
		return doc
	}
	doc.Shape = shape.String()
	doc.Canonical = shape.Declarator()
	doc.Quals = shape.Quals()
	for _, level := range shape.Levels() {
		doc.Levels = append(doc.Levels, level.String())
	}
	return doc
}

func (d ShapeDoc) writeText(w io.Writer) error {
	if !d.Valid {
		msg := d.Error
		if msg == "" {
			msg = "invalid declarator"
		}
		_, err := fmt.Fprintf(w, "%s: invalid: %s\n", d.Declarator, msg)
		return err
	}
	_, err := fmt.Fprintf(w, "%s: %s\n", d.Declarator, d.Shape)
	return err
}

// ShapeList is the serialized form of several decomposed declarators
type ShapeList []ShapeDoc

func (l ShapeList) writeText(w io.Writer) error {
	for _, d := range l {
		if err := d.writeText(w); err != nil {
			return err
		}
	}
	return nil
}

// VerdictDoc is the serialized form of one conversion check
type VerdictDoc struct {
	Name        string   `yaml:"name,omitempty" cbor:"name,omitempty"`
	From        ShapeDoc `yaml:"from" cbor:"from"`
	To          ShapeDoc `yaml:"to" cbor:"to"`
	Combined    string   `yaml:"combined,omitempty" cbor:"combined,omitempty"`
	Convertible bool     `yaml:"convertible" cbor:"convertible"`
	Reason      string   `yaml:"reason" cbor:"reason"`
	Level       *int     `yaml:"level,omitempty" cbor:"level,omitempty"`
	Expect      *bool    `yaml:"expect,omitempty" cbor:"expect,omitempty"`
	Mismatch    bool     `yaml:"mismatch,omitempty" cbor:"mismatch,omitempty"`
}

// NewVerdictDoc describes the check of from against to
func NewVerdictDoc(from, to string, v qualconv.Verdict) VerdictDoc {
	doc := VerdictDoc{
		From:        NewShapeDoc(from, v.Source, v.SourceErr),
		To:          NewShapeDoc(to, v.Target, v.TargetErr),
		Convertible: v.Convertible,
		Reason:      v.Reason.String(),
	}
	if v.Combined.Valid() {
		doc.Combined = v.Combined.String()
	}
	if v.Level >= 0 {
		level := v.Level
		doc.Level = &level
	}
	return doc
}

// WithExpectation records what the caller expected and whether it held
func (d VerdictDoc) WithExpectation(name string, expect *bool) VerdictDoc {
	d.Name = name
	d.Expect = expect
	d.Mismatch = expect != nil && *expect != d.Convertible
	return d
}

func (d VerdictDoc) writeText(w io.Writer) error {
	var b strings.Builder
	if d.Name != "" {
		fmt.Fprintf(&b, "%s: ", d.Name)
	}
	fmt.Fprintf(&b, "%t", d.Convertible)
	if !d.Convertible {
		fmt.Fprintf(&b, " (%s", d.Reason)
		if d.Level != nil {
			fmt.Fprintf(&b, " at level %d", *d.Level)
		}
		b.WriteString(")")
	}
	if d.Mismatch {
		fmt.Fprintf(&b, " [expected %t]", *d.Expect)
	}
	b.WriteString("\n")
	for _, side := range []ShapeDoc{d.From, d.To} {
		if side.Error != "" {
			fmt.Fprintf(&b, "  %s: %s\n", side.Declarator, side.Error)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// CombineDoc is the serialized form of a qualification-combined type
type CombineDoc struct {
	From     ShapeDoc `yaml:"from" cbor:"from"`
	To       ShapeDoc `yaml:"to" cbor:"to"`
	Combined ShapeDoc `yaml:"combined" cbor:"combined"`
}

func (d CombineDoc) writeText(w io.Writer) error {
	if !d.Combined.Valid {
		_, err := fmt.Fprintf(w, "%s + %s: no combined type\n", d.From.Declarator, d.To.Declarator)
		return err
	}
	_, err := fmt.Fprintf(w, "%s\n", d.Combined.Canonical)
	return err
}

// BatchDoc is the serialized form of a batch run
type BatchDoc struct {
	Checks     []VerdictDoc `yaml:"checks" cbor:"checks"`
	Total      int          `yaml:"total" cbor:"total"`
	Mismatches int          `yaml:"mismatches" cbor:"mismatches"`
}

func (d BatchDoc) writeText(w io.Writer) error {
	for _, c := range d.Checks {
		if err := c.writeText(w); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d checks, %d mismatches\n", d.Total, d.Mismatches)
	return err
}

type textWriter interface {
	writeText(w io.Writer) error
}

// Encoder writes documents in a fixed format
type Encoder struct {
	w      io.Writer
	format Format
	cbor   cbor.EncMode
}

// NewEncoder creates an Encoder writing format to w
func NewEncoder(w io.Writer, format Format) (*Encoder, error) {
	e := &Encoder{w: w, format: format}
	if format == CBOR {
		// canonical options give byte-for-byte stable output
		encMode, err := cbor.CanonicalEncOptions().EncMode()
		if err != nil {
			return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
		}
		e.cbor = encMode
	}
	return e, nil
}

// Encode writes one ShapeDoc, ShapeList, VerdictDoc, CombineDoc or BatchDoc
func (e *Encoder) Encode(doc any) error {
	switch e.format {
	case YAML:
		enc := yaml.NewEncoder(e.w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("YAML encoding failed: %w", err)
		}
		return enc.Close()
	case CBOR:
		data, err := e.cbor.Marshal(doc)
		if err != nil {
			return fmt.Errorf("CBOR encoding failed: %w", err)
		}
		_, err = e.w.Write(data)
		return err
	default:
		tw, ok := doc.(textWriter)
		if !ok {
			return fmt.Errorf("no text form for %T", doc)
		}
		return tw.writeText(e.w)
	}
}
