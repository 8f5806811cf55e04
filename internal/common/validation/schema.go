package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/xeipuuv/gojsonschema"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SchemaValidator checks records against a compiled JSON schema.
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

// NewSchemaValidator compiles an inline JSON schema document.
func NewSchemaValidator(schemaJSON string) (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// LoadSchema compiles the JSON schema stored at path.
func LoadSchema(path string) (*SchemaValidator, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("schema file: %w", err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewReferenceLoader("file://" + filepath.ToSlash(abs)))
	if err != nil {
		return nil, fmt.Errorf("invalid schema %s: %w", path, err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Validate checks a decoded JSON record.
func (v *SchemaValidator) Validate(record map[string]interface{}) (*ValidationResult, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(record))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	errors := make([]ValidationError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errors = append(errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    e.Type(),
		})
	}

	return &ValidationResult{
		Valid:  result.Valid(),
		Errors: errors,
	}, nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// ValidateEmail checks the shape of an address; it does no DNS or MX lookup.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}
