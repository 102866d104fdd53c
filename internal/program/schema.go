package program

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrSchema reports a manifest that does not conform to the program
// schema.
var ErrSchema = errors.New("program schema violation")

//go:embed program-schema.json
var programSchema []byte

// SchemaIssue is one schema violation found in a manifest.
type SchemaIssue struct {
	Field       string
	Description string
}

// CheckSchema validates raw YAML manifest bytes against the embedded
// program schema and returns every violation found.
func CheckSchema(data []byte) ([]SchemaIssue, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(programSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("validate schema: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	issues := make([]SchemaIssue, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		issues = append(issues, SchemaIssue{
			Field:       verr.Field(),
			Description: verr.Description(),
		})
	}

	return issues, nil
}

// Parse builds a Program from manifest bytes, running schema and
// semantic validation.
func Parse(data []byte) (*Program, error) {
	issues, err := CheckSchema(data)
	if err != nil {
		return nil, err
	}

	if len(issues) > 0 {
		first := issues[0]

		return nil, fmt.Errorf("%w: %s: %s (%d issue(s))",
			ErrSchema, first.Field, first.Description, len(issues))
	}

	var prog Program
	if err := yaml.Unmarshal(data, &prog); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}

	if err := prog.Validate(); err != nil {
		return nil, err
	}

	return &prog, nil
}

// Load reads and parses a program manifest from disk.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}

	prog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return prog, nil
}
