package qualconv

import (
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/raymyers/qualcheck/pkg/ctypes"
	"github.com/raymyers/qualcheck/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// ConvertCase represents a test case from convert.yaml
type ConvertCase struct {
	Name        string `yaml:"name"`
	From        string `yaml:"from"`
	To          string `yaml:"to"`
	Convertible bool   `yaml:"convertible"`
	Reason      string `yaml:"reason"`
	Level       *int   `yaml:"level,omitempty"`
}

// ConvertFile represents the convert.yaml file structure
type ConvertFile struct {
	Tests []ConvertCase `yaml:"tests"`
}

func TestConvertYAML(t *testing.T) {
	data, err := os.ReadFile("../../testdata/convert.yaml")
	require.NoError(t, err, "failed to read convert.yaml")

	var testFile ConvertFile
	require.NoError(t, yaml.Unmarshal(data, &testFile), "failed to parse convert.yaml")
	require.NotEmpty(t, testFile.Tests)

	for _, tc := range testFile.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Convertible, CheckConvertible(tc.From, tc.To))

			v := Explain(tc.From, tc.To)
			assert.Equal(t, tc.Convertible, v.Convertible)
			assert.Equal(t, tc.Reason, v.Reason.String())
			if tc.Level != nil {
				assert.Equal(t, *tc.Level, v.Level)
			} else {
				assert.Equal(t, -1, v.Level)
			}
		})
	}
}

// declarators enumerates every declarator with up to maxDepth pointers, every
// combination of const placements and an optional trailing [].
func declarators(maxDepth int) []string {
	var out []string
	var build func(prefix string, depth int)
	build = func(prefix string, depth int) {
		out = append(out, prefix, prefix+"[]")
		if depth == maxDepth {
			return
		}
		build(prefix+" *", depth+1)
		build(prefix+" *const", depth+1)
	}
	build("char", 0)
	build("const char", 0)
	return out
}

func validShapes(t *testing.T, maxDepth int) []ctypes.Shape {
	t.Helper()
	var shapes []ctypes.Shape
	for _, d := range declarators(maxDepth) {
		s := parser.Parse(d)
		require.True(t, s.Valid(), "generated declarator %q should parse", d)
		shapes = append(shapes, s)
	}
	return shapes
}

func TestReflexivity(t *testing.T) {
	for _, s := range validShapes(t, 3) {
		if s.IsArray() {
			assert.False(t, IsConvertible(s, s), "array %v is never a target", s)
			continue
		}
		assert.True(t, IsConvertible(s, s), "%v should convert to itself", s)
	}
}

func TestShapeMismatchNeverConvertible(t *testing.T) {
	shapes := validShapes(t, 3)
	for _, from := range shapes {
		for _, to := range shapes {
			if ShapeMatches(from, to) {
				continue
			}
			assert.False(t, IsConvertible(from, to), "%v -> %v differ in shape", from, to)
		}
	}
}

func TestArrayTargetNeverConvertible(t *testing.T) {
	shapes := validShapes(t, 2)
	for _, from := range shapes {
		for _, to := range shapes {
			if to.IsArray() {
				assert.False(t, IsConvertible(from, to), "%v -> %v has an array target", from, to)
			}
		}
	}
}

func TestFullyQualifiedTargetAcceptsAnySource(t *testing.T) {
	shapes := validShapes(t, 3)
	for _, to := range shapes {
		if to.IsArray() || !allConstBelowTop(to) {
			continue
		}
		for _, from := range shapes {
			if ShapeMatches(from, to) {
				assert.True(t, IsConvertible(from, to), "%v -> %v", from, to)
			}
		}
	}
}

func allConstBelowTop(s ctypes.Shape) bool {
	for i := 1; i <= s.Depth(); i++ {
		if !s.Qual(i) {
			return false
		}
	}
	return true
}

// Adding const at level k of an accepted target keeps it accepted as long as
// every level between the top and k is already const.
func TestAddingConstUnderConstPrefixIsMonotonic(t *testing.T) {
	shapes := validShapes(t, 3)
	for _, from := range shapes {
		for _, to := range shapes {
			if !IsConvertible(from, to) {
				continue
			}
			for k := 1; k <= to.Depth(); k++ {
				if to.Qual(k) {
					continue
				}
				prefixConst := true
				for i := 1; i < k; i++ {
					prefixConst = prefixConst && to.Qual(i)
				}
				if !prefixConst {
					continue
				}

				quals := to.Quals()
				quals[k] = true
				more := ctypes.NewShape(to.Base(), quals, to.Levels())
				assert.True(t, IsConvertible(from, more), "%v -> %v accepted but %v rejected", from, to, more)
			}
		}
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		want     string
	}{
		{"identical", "char **", "char **", "* * char"},
		{"difference at base forces intermediate const", "char **", "const char **", "* const * const char"},
		{"difference at first pointee", "char **", "char *const *", "* const * char"},
		{"top-level difference forces nothing", "char *", "char *const", "const * char"},
		{"array source keeps array", "char *[]", "char **", "[] * char"},
		{"deep difference", "char ***", "const char ***", "* const * const * const char"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := parser.Parse(tt.from), parser.Parse(tt.to)
			combined := Combine(from, to)
			require.True(t, combined.Valid())
			assert.Equal(t, tt.want, combined.String())
			assert.True(t, ShapeMatches(combined, from))
		})
	}
}

func TestCombineInvalid(t *testing.T) {
	tests := []struct {
		name     string
		from, to ctypes.Shape
	}{
		{"invalid source", ctypes.Invalid(), parser.Parse("char *")},
		{"invalid target", parser.Parse("char *"), ctypes.Invalid()},
		{"depth mismatch", parser.Parse("char *"), parser.Parse("char **")},
		{"pointer source, array target", parser.Parse("char *"), parser.Parse("char []")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, Combine(tt.from, tt.to).Valid())
			})
		})
	}
}

func TestCombineDoesNotMutateInputs(t *testing.T) {
	from := parser.Parse("char ***")
	to := parser.Parse("const char ***")
	before := []string{from.String(), to.String()}

	Combine(from, to)

	assert.Equal(t, before, []string{from.String(), to.String()})
}

func TestExplainParseErrors(t *testing.T) {
	v := Explain("char * cnst", "char [] *")
	assert.False(t, v.Convertible)
	assert.Equal(t, ReasonInvalidSource, v.Reason)
	assert.True(t, errors.Is(v.SourceErr, parser.ErrUnknownToken))
	assert.True(t, errors.Is(v.TargetErr, parser.ErrArrayNotLast))
	assert.False(t, v.Combined.Valid())

	v = Explain("char *", "char *")
	assert.True(t, v.Convertible)
	assert.NoError(t, v.SourceErr)
	assert.NoError(t, v.TargetErr)
	assert.Equal(t, "* char", v.Combined.String())
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "insufficient qualification", ReasonQualifiers.String())
	assert.Equal(t, "unknown", Reason(42).String())
	assert.Equal(t, "unknown", Reason(-1).String())
}

func TestConcurrentChecks(t *testing.T) {
	from := parser.Parse("char **")
	to := parser.Parse("const char *const *")

	var wg sync.WaitGroup
	results := make([]bool, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = IsConvertible(from, to) && !CheckConvertible("char **", "const char **")
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		assert.True(t, ok, "check %d", i)
	}
	assert.False(t, strings.Contains(from.String(), "const"), "source shape must stay untouched")
}
