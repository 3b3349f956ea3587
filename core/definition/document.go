// Package definition loads declarative YAML definitions into a namespace:
// named pipelines, models, enums and handler groups.
//
// A stage is written either as a bare item name or as a single-key mapping
// from the item name to its arguments:
//
//	pipelines:
//	  slug:
//	    - trim
//	    - toLowerCase
//	    - regexReplace: {format: "\\s+", substitute: "-"}
//
// An argument whose value is a mapping with the single key $pipe is a nested
// pipeline, evaluated against the enclosing subject when the stage runs:
//
//   - padStart: {width: {$pipe: [count]}, char: "0"}
//
// Decorators use the same stage syntax.
package definition

import (
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/schema"
)

// Document is one parsed YAML document.
type Document struct {
	// Source names the file the document came from, for error prefixes.
	Source string

	// Namespace is the path symbols are defined under; empty means main.
	Namespace []string

	Pipelines []Pipeline
	Models    []Model
	Enums     []Enum
	Handlers  []Group
}

// Pipeline is a named declarative chain.
type Pipeline struct {
	Name        string
	Description string
	Chain       pipeline.Chain
}

// Model declares a model.
type Model struct {
	Name       string
	Decorators []pipeline.Stage
	Fields     []Field
	Relations  []Relation
	Properties []Property
}

// Field declares a model field.
type Field struct {
	Name       string
	Type       schema.FieldType
	Decorators []pipeline.Stage
}

// Relation declares a model relation.
type Relation struct {
	Name       string
	Model      string
	Many       bool
	Decorators []pipeline.Stage
}

// Property declares a computed property.
type Property struct {
	Name       string
	Decorators []pipeline.Stage
}

// Enum declares an enum.
type Enum struct {
	Name       string
	Decorators []pipeline.Stage
	Members    []Member
}

// Member declares an enum member.
type Member struct {
	Name       string
	Decorators []pipeline.Stage
}

// Group declares a handler group.
type Group struct {
	Name     string
	Handlers []Handler
}

// Handler declares a handler backed by a chain.
type Handler struct {
	Name        string
	Chain       pipeline.Chain
	Middlewares []pipeline.Stage
}
