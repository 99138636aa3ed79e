// internal/common/validation/schema.go
package validation

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error joins every violation into one line.
func (r *ValidationResult) Error() string {
	if r == nil || r.Valid {
		return ""
	}
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(parts, "; ")
}

// Schema is a compiled JSON schema for one task's job variables.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

func (s *Schema) Name() string { return s.name }

// Compile parses a schema document.
func Compile(name string, source []byte) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(source))
	if err != nil {
		return nil, fmt.Errorf("invalid schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: compiled}, nil
}

// Validate checks raw job variables against the schema. Malformed JSON is
// reported as a single INVALID_JSON violation.
func (s *Schema) Validate(raw []byte) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "INVALID_JSON",
		}}}
	}
	return toResult(result)
}

// ValidateValue checks an already decoded value, such as a map built by a test.
func (s *Schema) ValidateValue(v interface{}) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(v))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "INVALID_VALUE",
		}}}
	}
	return toResult(result)
}

func toResult(result *gojsonschema.Result) *ValidationResult {
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}
	errs := make([]ValidationError, len(result.Errors()))
	for i, desc := range result.Errors() {
		field := desc.Field()
		// required violations are reported on the parent object
		if prop, ok := desc.Details()["property"].(string); ok && desc.Type() == "required" {
			if field == "(root)" {
				field = prop
			} else {
				field = field + "." + prop
			}
		}
		errs[i] = ValidationError{
			Field:   field,
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		}
	}
	return &ValidationResult{Errors: errs}
}

var (
	registryOnce sync.Once
	registry     map[string]*Schema
	registryErr  error
)

// ForTask returns the embedded schema named after a task type, for example
// "rank-feed" loads schemas/rank-feed.json.
func ForTask(taskType string) (*Schema, error) {
	registryOnce.Do(loadRegistry)
	if registryErr != nil {
		return nil, registryErr
	}
	s, ok := registry[taskType]
	if !ok {
		return nil, fmt.Errorf("no input schema for task %q", taskType)
	}
	return s, nil
}

// MustForTask panics when the schema is missing; used in handler constructors.
func MustForTask(taskType string) *Schema {
	s, err := ForTask(taskType)
	if err != nil {
		panic(err)
	}
	return s
}

func loadRegistry() {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		registryErr = err
		return
	}
	registry = make(map[string]*Schema, len(entries))
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".json")
		source, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			registryErr = err
			return
		}
		s, err := Compile(name, source)
		if err != nil {
			registryErr = err
			return
		}
		registry[name] = s
	}
}
