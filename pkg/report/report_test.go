package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/raymyers/qualcheck/pkg/parser"
	"github.com/raymyers/qualcheck/pkg/qualconv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func encode(t *testing.T, format Format, doc any) string {
	t.Helper()
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, format)
	require.NoError(t, err)
	require.NoError(t, enc.Encode(doc))
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"text", "yaml", "CBOR"} {
		f, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, name, map[Format]string{Text: "text", YAML: "yaml", CBOR: "CBOR"}[f])
	}

	_, err := ParseFormat("json")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
	assert.Equal(t, "yaml", YAML.String())
}

func TestShapeDoc(t *testing.T) {
	shape, err := parser.Decompose("char *const[]")
	require.NoError(t, err)

	doc := NewShapeDoc("char *const[]", shape, nil)
	want := ShapeDoc{
		Declarator: "char *const[]",
		Valid:      true,
		Shape:      "const [] const * char",
		Canonical:  "char *const[]",
		Levels:     []string{"[]", "*"},
		Quals:      []bool{true, true, false},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("ShapeDoc mismatch (-want +got):\n%s", diff)
	}

	shape, err = parser.Decompose("char * cnst")
	doc = NewShapeDoc("char * cnst", shape, err)
	assert.False(t, doc.Valid)
	assert.Empty(t, doc.Levels)
	assert.Contains(t, encode(t, Text, doc), "char * cnst: invalid: col 8: unknown token")
}

func TestVerdictText(t *testing.T) {
	tests := []struct {
		from, to string
		want     string
	}{
		{"char **", "const char *const *", "true\n"},
		{"char **", "const char **", "false (insufficient qualification at level 1)\n"},
		{"char []", "char []", "false (array target)\n"},
		{"char *", "chr *", "false (invalid target)\n  chr *: col 1: missing or unknown base type \"chr\" (did you mean \"char\"?)\n"},
	}

	for _, tt := range tests {
		doc := NewVerdictDoc(tt.from, tt.to, qualconv.Explain(tt.from, tt.to))
		assert.Equal(t, tt.want, encode(t, Text, doc), "%s -> %s", tt.from, tt.to)
	}
}

func TestVerdictExpectation(t *testing.T) {
	no := false
	doc := NewVerdictDoc("char *", "const char *", qualconv.Explain("char *", "const char *")).
		WithExpectation("add const", &no)

	assert.True(t, doc.Mismatch)
	assert.Equal(t, "add const: true [expected false]\n", encode(t, Text, doc))

	doc = doc.WithExpectation("no expectation", nil)
	assert.False(t, doc.Mismatch)
}

func TestVerdictYAML(t *testing.T) {
	doc := NewVerdictDoc("char **", "const char **", qualconv.Explain("char **", "const char **"))
	out := encode(t, YAML, doc)

	var got VerdictDoc
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("YAML mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, out, "reason: insufficient qualification")
	assert.Contains(t, out, "level: 1")
}

func TestVerdictCBORIsCanonical(t *testing.T) {
	doc := NewVerdictDoc("char **", "char *const *", qualconv.Explain("char **", "char *const *"))

	first := encode(t, CBOR, doc)
	second := encode(t, CBOR, doc)
	assert.Equal(t, first, second, "canonical CBOR must be byte-for-byte stable")

	var got VerdictDoc
	require.NoError(t, cbor.Unmarshal([]byte(first), &got))
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("CBOR mismatch (-want +got):\n%s", diff)
	}
}

func TestCombineDocText(t *testing.T) {
	from, to := parser.Parse("char **"), parser.Parse("const char **")
	doc := CombineDoc{
		From:     NewShapeDoc("char **", from, nil),
		To:       NewShapeDoc("const char **", to, nil),
		Combined: NewShapeDoc("", qualconv.Combine(from, to), nil),
	}
	assert.Equal(t, "const char *const *\n", encode(t, Text, doc))

	doc.Combined = NewShapeDoc("", qualconv.Combine(from, parser.Parse("char *")), nil)
	assert.Equal(t, "char ** + const char **: no combined type\n", encode(t, Text, doc))
}

func TestBatchDocText(t *testing.T) {
	doc := BatchDoc{
		Checks: []VerdictDoc{
			NewVerdictDoc("char", "char", qualconv.Explain("char", "char")),
		},
		Total: 1,
	}
	assert.Equal(t, "true\n1 checks, 0 mismatches\n", encode(t, Text, doc))
}

func TestTextRejectsUnknownDocs(t *testing.T) {
	enc, err := NewEncoder(&bytes.Buffer{}, Text)
	require.NoError(t, err)
	assert.Error(t, enc.Encode(struct{}{}))
}
