// Package schema defines the constructs decorators operate on: models with
// their fields, relations and properties, enums with their members, and
// structs. It also applies field pipelines to records, which is how the
// schema layer consumes the pipeline runtime.
package schema

import (
	"context"
	"strings"

	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/value"
)

// Model is a named record schema.
type Model struct {
	Path        []string
	Name        string
	Table       string
	Description string

	Fields     []*Field
	Relations  []*Relation
	Properties []*Property
}

// NewModel creates an empty model at path.
func NewModel(path []string) *Model {
	name := ""
	if len(path) > 0 {
		name = path[len(path)-1]
	}
	p := make([]string, len(path))
	copy(p, path)
	return &Model{Path: p, Name: name, Table: name}
}

// FullName returns the dotted path.
func (m *Model) FullName() string { return strings.Join(m.Path, ".") }

// Field returns a field by name.
func (m *Model) Field(name string) (*Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Relation returns a relation by name.
func (m *Model) Relation(name string) (*Relation, bool) {
	for _, r := range m.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Property returns a property by name.
func (m *Model) Property(name string) (*Property, bool) {
	for _, p := range m.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

func (m *Model) prefix(member string) string {
	return m.Name + "." + member
}

// ApplyOnSet prepares a record for storage: unknown keys are rejected,
// defaults fill absent fields, OnSet pipelines run in field order, types and
// constraints are checked, and cached properties are computed.
func (m *Model) ApplyOnSet(ctx context.Context, lookup pipeline.Lookup, record value.Value) (value.Value, error) {
	entries, err := record.AsDictionary()
	if err != nil {
		return value.Null(), failure.Coercion(m.Name, err)
	}
	for _, e := range entries {
		if _, ok := m.Field(e.Key); !ok {
			return value.Null(), failure.Argument(m.prefix(e.Key), "field is not defined")
		}
	}

	out := make([]value.Entry, 0, len(m.Fields))
	for _, f := range m.Fields {
		v, present := record.Field(f.Name)
		if !present && f.Default != nil {
			v, present = *f.Default, true
		}
		if !present {
			if f.Required {
				return value.Null(), failure.Argument(m.prefix(f.Name), "required field is missing")
			}
			continue
		}
		if !f.OnSet.IsEmpty() {
			v, err = pipeline.Evaluate(ctx, f.OnSet, v, lookup)
			if err != nil {
				return value.Null(), failure.Prefix(m.prefix(f.Name), err)
			}
		}
		if !f.Type.Accepts(v.Kind()) {
			return value.Null(), failure.Coercion(m.prefix(f.Name), &value.ConversionError{Want: kindFor(f.Type), Got: v.Kind()})
		}
		if v.IsNull() && f.Required {
			return value.Null(), failure.Argument(m.prefix(f.Name), "required field is null")
		}
		out = append(out, value.Entry{Key: f.Name, Value: v})
	}

	stored := value.Dictionary(out...)
	if result := m.Validate(stored); !result.Valid {
		return value.Null(), failure.Argument(m.Name, result.Error())
	}

	for _, p := range m.Properties {
		if !p.Cached || p.Getter.IsEmpty() {
			continue
		}
		v, err := pipeline.Evaluate(ctx, p.Getter, stored, lookup)
		if err != nil {
			return value.Null(), failure.Prefix(m.prefix(p.Name), err)
		}
		out = append(out, value.Entry{Key: p.Name, Value: v})
	}
	return value.Dictionary(out...), nil
}

// Output prepares a stored record for callers: internal fields are dropped,
// OnOutput pipelines run, and non-cached properties are computed from the
// stored record.
func (m *Model) Output(ctx context.Context, lookup pipeline.Lookup, record value.Value) (value.Value, error) {
	if _, err := record.AsDictionary(); err != nil {
		return value.Null(), failure.Coercion(m.Name, err)
	}

	var out []value.Entry
	for _, f := range m.Fields {
		v, present := record.Field(f.Name)
		if !present || f.Internal {
			continue
		}
		if !f.OnOutput.IsEmpty() {
			var err error
			v, err = pipeline.Evaluate(ctx, f.OnOutput, v, lookup)
			if err != nil {
				return value.Null(), failure.Prefix(m.prefix(f.Name), err)
			}
		}
		out = append(out, value.Entry{Key: f.Name, Value: v})
	}
	for _, p := range m.Properties {
		if p.Cached {
			if v, ok := record.Field(p.Name); ok {
				out = append(out, value.Entry{Key: p.Name, Value: v})
			}
			continue
		}
		if p.Getter.IsEmpty() {
			continue
		}
		v, err := pipeline.Evaluate(ctx, p.Getter, record, lookup)
		if err != nil {
			return value.Null(), failure.Prefix(m.prefix(p.Name), err)
		}
		out = append(out, value.Entry{Key: p.Name, Value: v})
	}
	return value.Dictionary(out...), nil
}

// Validate checks field constraints against a record.
func (m *Model) Validate(record value.Value) ValidationResult {
	result := ValidationResult{Valid: true}
	for _, f := range m.Fields {
		v, ok := record.Field(f.Name)
		if !ok {
			continue
		}
		for _, c := range f.Constraints {
			if cerr := ValidateConstraint(f.Name, v, c); cerr != nil {
				result.AddError(cerr.Field, cerr.Constraint, cerr.Value, cerr.Message)
			}
		}
	}
	return result
}

func kindFor(t FieldType) value.Kind {
	switch t {
	case FieldTypeString:
		return value.KindString
	case FieldTypeInt:
		return value.KindInt
	case FieldTypeFloat:
		return value.KindFloat
	case FieldTypeBool:
		return value.KindBool
	case FieldTypeArray:
		return value.KindArray
	case FieldTypeDictionary:
		return value.KindDictionary
	}
	return value.KindNull
}
