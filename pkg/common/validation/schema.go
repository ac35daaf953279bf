// Package validation checks the shape of inbound assessment payloads before
// they reach the preprocessor.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FieldError is one schema violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error collects every violation of a payload.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

// Validator validates decoded JSON documents against a compiled schema.
type Validator struct {
	schema *gojsonschema.Schema
}

func New(schema map[string]interface{}) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate returns *Error when document does not match the schema.
func (v *Validator) Validate(document interface{}) error {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return fmt.Errorf("validate payload: %w", err)
	}
	if result.Valid() {
		return nil
	}
	out := &Error{}
	for _, re := range result.Errors() {
		out.Fields = append(out.Fields, FieldError{Field: re.Field(), Message: re.Description()})
	}
	return out
}

// RecordSchema accepts an object whose fields are strings, numbers or null.
// The listed fields are documented with their expected type; unknown fields
// are allowed and ignored later.
func RecordSchema(numeric, categorical []string) map[string]interface{} {
	scalar := []interface{}{"string", "number", "null"}
	props := make(map[string]interface{}, len(numeric)+len(categorical))
	for _, name := range numeric {
		props[name] = map[string]interface{}{"type": scalar, "description": "numeric field"}
	}
	for _, name := range categorical {
		props[name] = map[string]interface{}{"type": scalar, "description": "categorical field"}
	}
	return map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": map[string]interface{}{"type": scalar},
	}
}
