package common

import (
	"fmt"
	"strings"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	if e.Value == nil {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

func (e ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for the given field path.
func NewValidationError(field string, value interface{}, message string) ValidationError {
	return ValidationError{Field: field, Value: value, Message: message}
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// Add records an already-built error.
func (v *Validator) Add(err ValidationError) *Validator {
	v.errors = append(v.errors, err)
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns the first validation error, which names the offending field path.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return v.errors[0]
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Message: "is required"}
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Message: "is required"}
		}
	case *string:
		if v == nil || strings.TrimSpace(*v) == "" {
			return &ValidationError{Field: fieldName, Message: "is required"}
		}
	}
	return nil
}

// NonNegative rejects negative optional numbers; nil passes.
func NonNegative(fieldName string, value interface{}) *ValidationError {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return &ValidationError{Field: fieldName, Value: v, Message: "must be zero or greater"}
		}
	case *float64:
		if v != nil && *v < 0 {
			return &ValidationError{Field: fieldName, Value: *v, Message: "must be zero or greater"}
		}
	}
	return nil
}
