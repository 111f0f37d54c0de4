package models

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError carries per-field messages for malformed or out-of-range
// input. Handlers render it as a 422 body of the form {"errors": {field: [msgs]}}.
type ValidationError struct {
	Fields map[string][]string `json:"errors"`
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

// OrNil returns nil when no field errors were recorded.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}
