package schema

import (
	"fmt"
	"strings"

	"github.com/artpar/pipekit/core/value"
)

// Constraint defines a validation rule for a field.
type Constraint struct {
	// Type is the constraint type (min, max, min_length, max_length, pattern, etc.)
	Type ConstraintType `yaml:"type" json:"type"`

	// Value is the constraint parameter (number, regex pattern, etc.)
	Value value.Value `yaml:"value" json:"value"`

	// Message is the custom error message (optional).
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// ConstraintType identifies the type of constraint.
type ConstraintType string

const (
	ConstraintMin       ConstraintType = "min"
	ConstraintMax       ConstraintType = "max"
	ConstraintMinLength ConstraintType = "min_length"
	ConstraintMaxLength ConstraintType = "max_length"
	ConstraintPattern   ConstraintType = "pattern"
	ConstraintNotEmpty  ConstraintType = "not_empty"
	ConstraintOneOf     ConstraintType = "one_of"
)

// Known reports whether t is a supported constraint type.
func (t ConstraintType) Known() bool {
	switch t {
	case ConstraintMin, ConstraintMax, ConstraintMinLength, ConstraintMaxLength,
		ConstraintPattern, ConstraintNotEmpty, ConstraintOneOf:
		return true
	}
	return false
}

// ConstraintError represents a validation failure.
type ConstraintError struct {
	Field      string      `json:"field"`
	Constraint string      `json:"constraint"`
	Value      value.Value `json:"value"`
	Message    string      `json:"message"`
}

func (e ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult holds all validation errors for a record.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ConstraintError `json:"errors,omitempty"`
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, constraint string, v value.Value, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ConstraintError{
		Field:      field,
		Constraint: constraint,
		Value:      v,
		Message:    message,
	})
}

// Error returns a combined error message.
func (r ValidationResult) Error() string {
	if r.Valid {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateConstraint validates a value against a single constraint.
// Values of a shape the constraint does not apply to pass.
func ValidateConstraint(fieldName string, v value.Value, c Constraint) *ConstraintError {
	fail := func(defaultMsg string) *ConstraintError {
		msg := c.Message
		if msg == "" {
			msg = defaultMsg
		}
		return &ConstraintError{Field: fieldName, Constraint: string(c.Type), Value: v, Message: msg}
	}

	switch c.Type {
	case ConstraintMin, ConstraintMax:
		bound, err := c.Value.AsFloat()
		if err != nil {
			return nil
		}
		n, err := v.AsFloat()
		if err != nil {
			return nil
		}
		if c.Type == ConstraintMin && n < bound {
			return fail(fmt.Sprintf("must be at least %v", bound))
		}
		if c.Type == ConstraintMax && n > bound {
			return fail(fmt.Sprintf("must be at most %v", bound))
		}
	case ConstraintMinLength, ConstraintMaxLength:
		bound, err := c.Value.AsUint()
		if err != nil || (v.Kind() != value.KindString && v.Kind() != value.KindArray) {
			return nil
		}
		if c.Type == ConstraintMinLength && v.Len() < bound {
			return fail(fmt.Sprintf("must be at least %d characters", bound))
		}
		if c.Type == ConstraintMaxLength && v.Len() > bound {
			return fail(fmt.Sprintf("must be at most %d characters", bound))
		}
	case ConstraintPattern:
		re, err := c.Value.AsRegexp()
		if err != nil {
			return nil
		}
		s, err := v.AsString()
		if err != nil {
			return nil
		}
		if !re.MatchString(s) {
			return fail("does not match required pattern")
		}
	case ConstraintNotEmpty:
		s, err := v.AsString()
		if err != nil {
			return nil
		}
		if strings.TrimSpace(s) == "" {
			return fail("must not be empty")
		}
	case ConstraintOneOf:
		allowed, err := c.Value.AsArray()
		if err != nil {
			return nil
		}
		var options []string
		for _, a := range allowed {
			if a.Equal(v) {
				return nil
			}
			options = append(options, a.String())
		}
		return fail(fmt.Sprintf("must be one of: %s", strings.Join(options, ", ")))
	}
	return nil
}
