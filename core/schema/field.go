package schema

import (
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/value"
)

// Field defines a data field of a model. Decorators fill it in while
// definitions load.
type Field struct {
	// Name is the field name as written in the definition.
	Name string

	// Type is the field type. See FieldType constants.
	Type FieldType

	// Column is the storage column name; defaults to Name.
	Column string

	Description string

	Unique   bool
	Index    bool
	Required bool

	// Internal marks fields that are never returned by Output.
	Internal bool

	// Default is used when a record omits the field.
	Default *value.Value

	// OnSet runs when a value is written to the field.
	OnSet pipeline.Pipeline

	// OnOutput runs when the field is read back.
	OnOutput pipeline.Pipeline

	Constraints []Constraint
}

// NewField creates a field of the given type.
func NewField(name string, t FieldType) *Field {
	return &Field{Name: name, Type: t, Column: name}
}

// FieldType represents the type of a schema field.
type FieldType string

const (
	FieldTypeAny        FieldType = "any"
	FieldTypeString     FieldType = "string"
	FieldTypeInt        FieldType = "int"
	FieldTypeFloat      FieldType = "float"
	FieldTypeBool       FieldType = "bool"
	FieldTypeArray      FieldType = "array"
	FieldTypeDictionary FieldType = "dictionary"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeAny, FieldTypeString, FieldTypeInt, FieldTypeFloat,
		FieldTypeBool, FieldTypeArray, FieldTypeDictionary:
		return true
	}
	return false
}

// Accepts reports whether a value of kind k may be stored in the field.
// Null is accepted by every type; required-ness is checked separately.
func (t FieldType) Accepts(k value.Kind) bool {
	if k == value.KindNull {
		return true
	}
	switch t {
	case FieldTypeAny, "":
		return true
	case FieldTypeString:
		return k == value.KindString
	case FieldTypeInt:
		return k == value.KindInt
	case FieldTypeFloat:
		return k == value.KindFloat || k == value.KindInt
	case FieldTypeBool:
		return k == value.KindBool
	case FieldTypeArray:
		return k == value.KindArray
	case FieldTypeDictionary:
		return k == value.KindDictionary
	}
	return false
}

// Relation links a model to another model.
type Relation struct {
	Name        string
	Model       string
	Many        bool
	Fields      []string
	References  []string
	Description string
}

// Property is a computed field. Cached properties are computed when a record
// is written and stored with it; others are computed on output.
type Property struct {
	Name        string
	Getter      pipeline.Pipeline
	Cached      bool
	Description string
}
