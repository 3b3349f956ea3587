// Package namespace implements the hierarchical symbol registry.
//
// A namespace owns name-keyed tables for child namespaces, pipeline items,
// the six decorator families, and the declarative constructs (structs,
// models, enums, handler groups, middleware). Every symbol's path is its
// namespace's path with its name appended. The root ("main") namespace has
// an empty path.
//
// The tree is built while definitions load and is read-only afterwards, so
// lookups from concurrently running pipelines need no locking. Defining a
// name twice replaces the earlier symbol.
package namespace

import (
	"strings"

	"github.com/artpar/pipekit/core/decorator"
	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/handler"
	"github.com/artpar/pipekit/core/middleware"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/schema"
)

// StdName is the name of the namespace the standard library loads into.
const StdName = "std"

// Library populates the standard namespace.
type Library interface {
	Load(std *Namespace) error
}

// Namespace is one node of the registry tree.
type Namespace struct {
	path   []string
	parent *Namespace

	stdLoaded bool

	namespaces    table[*Namespace]
	pipelineItems table[pipeline.Item]

	modelDecorators         table[decorator.Decorator[schema.Model]]
	modelFieldDecorators    table[decorator.Decorator[schema.Field]]
	modelRelationDecorators table[decorator.Decorator[schema.Relation]]
	modelPropertyDecorators table[decorator.Decorator[schema.Property]]
	enumDecorators          table[decorator.Decorator[schema.Enum]]
	enumMemberDecorators    table[decorator.Decorator[schema.Member]]

	structs       table[*schema.Struct]
	models        table[*schema.Model]
	enums         table[*schema.Enum]
	handlerGroups table[*handler.Group]
	middlewares   table[middleware.Definition]
}

// Main creates an empty root namespace.
func Main() *Namespace {
	return newNamespace(nil, nil)
}

func newNamespace(path []string, parent *Namespace) *Namespace {
	return &Namespace{
		path:   path,
		parent: parent,

		namespaces:    newTable[*Namespace](),
		pipelineItems: newTable[pipeline.Item](),

		modelDecorators:         newTable[decorator.Decorator[schema.Model]](),
		modelFieldDecorators:    newTable[decorator.Decorator[schema.Field]](),
		modelRelationDecorators: newTable[decorator.Decorator[schema.Relation]](),
		modelPropertyDecorators: newTable[decorator.Decorator[schema.Property]](),
		enumDecorators:          newTable[decorator.Decorator[schema.Enum]](),
		enumMemberDecorators:    newTable[decorator.Decorator[schema.Member]](),

		structs:       newTable[*schema.Struct](),
		models:        newTable[*schema.Model](),
		enums:         newTable[*schema.Enum](),
		handlerGroups: newTable[*handler.Group](),
		middlewares:   newTable[middleware.Definition](),
	}
}

// Path returns a copy of the namespace path.
func (n *Namespace) Path() []string {
	p := make([]string, len(n.path))
	copy(p, n.path)
	return p
}

// FullName returns the dotted path. The main namespace renders as "main".
func (n *Namespace) FullName() string {
	if n.IsMain() {
		return "main"
	}
	return strings.Join(n.path, ".")
}

// IsMain reports whether n is the root.
func (n *Namespace) IsMain() bool { return len(n.path) == 0 }

// Root returns the main namespace n belongs to.
func (n *Namespace) Root() *Namespace {
	for n.parent != nil {
		n = n.parent
	}
	return n
}

func (n *Namespace) childPath(name string) []string {
	p := make([]string, len(n.path), len(n.path)+1)
	copy(p, n.path)
	return append(p, name)
}

// NamespaceOrCreate returns the child namespace called name, creating it
// when absent.
func (n *Namespace) NamespaceOrCreate(name string) *Namespace {
	if child, ok := n.namespaces.get(name); ok {
		return child
	}
	child := newNamespace(n.childPath(name), n)
	n.namespaces.set(name, child)
	return child
}

// NamespaceOrCreateAt walks path, creating missing namespaces.
func (n *Namespace) NamespaceOrCreateAt(path []string) *Namespace {
	for _, name := range path {
		n = n.NamespaceOrCreate(name)
	}
	return n
}

// Namespace returns the child namespace called name.
func (n *Namespace) Namespace(name string) (*Namespace, bool) {
	return n.namespaces.get(name)
}

// NamespaceAt returns the descendant at path, relative to n.
func (n *Namespace) NamespaceAt(path []string) (*Namespace, bool) {
	for _, name := range path {
		child, ok := n.namespaces.get(name)
		if !ok {
			return nil, false
		}
		n = child
	}
	return n, true
}

// Namespaces returns child namespace names in sorted order.
func (n *Namespace) Namespaces() []string { return n.namespaces.names() }

// LoadStandardLibrary loads lib into the std namespace. It is only valid on
// the main namespace and only once.
func (n *Namespace) LoadStandardLibrary(lib Library) error {
	if !n.IsMain() {
		return failure.Definition(n.FullName(), "the standard library can only be loaded into the main namespace")
	}
	if n.stdLoaded {
		return failure.Definition(StdName, "the standard library is already loaded")
	}
	if err := lib.Load(n.NamespaceOrCreate(StdName)); err != nil {
		return failure.AsDefinition(StdName, err)
	}
	n.stdLoaded = true
	return nil
}

// HasStandardLibrary reports whether LoadStandardLibrary succeeded on n.
func (n *Namespace) HasStandardLibrary() bool { return n.stdLoaded }
