package schema

import (
	"testing"

	"github.com/artpar/pipekit/core/value"
)

func TestValidateConstraint(t *testing.T) {
	tests := []struct {
		name       string
		v          value.Value
		constraint Constraint
		wantErr    bool
	}{
		{"min passes", value.Int(5), Constraint{Type: ConstraintMin, Value: value.Int(1)}, false},
		{"min fails", value.Int(0), Constraint{Type: ConstraintMin, Value: value.Int(1)}, true},
		{"max float", value.Float(2.5), Constraint{Type: ConstraintMax, Value: value.Int(2)}, true},
		{"min ignores strings", value.String("x"), Constraint{Type: ConstraintMin, Value: value.Int(1)}, false},
		{"min_length", value.String("ab"), Constraint{Type: ConstraintMinLength, Value: value.Int(3)}, true},
		{"max_length counts runes", value.String("héé"), Constraint{Type: ConstraintMaxLength, Value: value.Int(3)}, false},
		{"max_length array", value.Strings([]string{"a", "b"}), Constraint{Type: ConstraintMaxLength, Value: value.Int(1)}, true},
		{"pattern match", value.String("abc"), Constraint{Type: ConstraintPattern, Value: value.String("^a")}, false},
		{"pattern mismatch", value.String("xbc"), Constraint{Type: ConstraintPattern, Value: value.String("^a")}, true},
		{"not_empty", value.String("  "), Constraint{Type: ConstraintNotEmpty}, true},
		{"one_of ok", value.String("b"), Constraint{Type: ConstraintOneOf, Value: value.Strings([]string{"a", "b"})}, false},
		{"one_of fails", value.String("c"), Constraint{Type: ConstraintOneOf, Value: value.Strings([]string{"a", "b"})}, true},
		{"unknown type passes", value.String("c"), Constraint{Type: "nope"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConstraint("f", tt.v, tt.constraint)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConstraint() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConstraint_CustomMessage(t *testing.T) {
	err := ValidateConstraint("age", value.Int(3), Constraint{Type: ConstraintMin, Value: value.Int(18), Message: "too young"})
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "age: too young" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidationResult(t *testing.T) {
	r := ValidationResult{Valid: true}
	if r.Error() != "" {
		t.Errorf("valid result Error() = %q", r.Error())
	}
	r.AddError("a", "min", value.Int(0), "low")
	r.AddError("b", "max", value.Int(9), "high")
	if r.Valid {
		t.Error("result should be invalid")
	}
	if r.Error() != "a: low; b: high" {
		t.Errorf("Error() = %q", r.Error())
	}
}

func TestConstraintType_Known(t *testing.T) {
	if !ConstraintPattern.Known() {
		t.Error("pattern should be known")
	}
	if ConstraintType("regex").Known() {
		t.Error("regex should not be known")
	}
}
