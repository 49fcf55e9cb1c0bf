// Package batch runs many conversion checks listed in a YAML file.
//
// A batch file looks like:
//
//	checks:
//	  - name: char** to const char**
//	    from: "char **"
//	    to: "const char **"
//	    expect: false
package batch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFile is wrapped by every Load error caused by the file contents
var ErrInvalidFile = errors.New("invalid batch file")

const schemaURL = "qualcheck://batch.schema.json"

const schemaJSON = `{
  "type": "object",
  "required": ["checks"],
  "additionalProperties": false,
  "properties": {
    "checks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from", "to"],
        "additionalProperties": false,
        "properties": {
          "name":   {"type": "string"},
          "from":   {"type": "string"},
          "to":     {"type": "string"},
          "expect": {"type": "boolean"}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to add batch schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Check is one conversion to evaluate
type Check struct {
	Name   string `yaml:"name,omitempty"`
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Expect *bool  `yaml:"expect,omitempty"`
}

// File is the batch file structure
type File struct {
	Checks []Check `yaml:"checks"`
}

// Load reads a batch file and validates it against the batch schema.
func Load(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	return &file, nil
}

// validate checks a decoded YAML document against the batch schema. The
// document goes through JSON first so that the validator sees JSON types.
func validate(doc any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	return nil
}
