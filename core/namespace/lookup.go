package namespace

import (
	"github.com/artpar/pipekit/core/decorator"
	"github.com/artpar/pipekit/core/handler"
	"github.com/artpar/pipekit/core/middleware"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/schema"
)

// resolve finds the symbol at path. The path is tried relative to n, then
// from the root; a single-segment path finally falls back to std.
func resolve[T any](n *Namespace, path []string, pick func(*Namespace) *table[T]) (T, bool) {
	var zero T
	if len(path) == 0 {
		return zero, false
	}
	dir, name := path[:len(path)-1], path[len(path)-1]

	root := n.Root()
	scopes := []*Namespace{n}
	if root != n {
		scopes = append(scopes, root)
	}
	for _, scope := range scopes {
		if ns, ok := scope.NamespaceAt(dir); ok {
			if v, ok := pick(ns).get(name); ok {
				return v, true
			}
		}
	}
	if len(dir) == 0 {
		if std, ok := root.Namespace(StdName); ok {
			return pick(std).get(name)
		}
	}
	return zero, false
}

// PipelineItem returns the pipeline item defined directly in n.
func (n *Namespace) PipelineItem(name string) (pipeline.Item, bool) {
	return n.pipelineItems.get(name)
}

// PipelineItemAt resolves a pipeline item by path. It implements
// pipeline.Lookup.
func (n *Namespace) PipelineItemAt(path []string) (pipeline.Item, bool) {
	return resolve(n, path, func(ns *Namespace) *table[pipeline.Item] { return &ns.pipelineItems })
}

// ModelDecorator returns the model decorator defined directly in n.
func (n *Namespace) ModelDecorator(name string) (decorator.Decorator[schema.Model], bool) {
	return n.modelDecorators.get(name)
}

// ModelDecoratorAt resolves a model decorator by path.
func (n *Namespace) ModelDecoratorAt(path []string) (decorator.Decorator[schema.Model], bool) {
	return resolve(n, path, func(ns *Namespace) *table[decorator.Decorator[schema.Model]] { return &ns.modelDecorators })
}

// ModelFieldDecorator returns the field decorator defined directly in n.
func (n *Namespace) ModelFieldDecorator(name string) (decorator.Decorator[schema.Field], bool) {
	return n.modelFieldDecorators.get(name)
}

// ModelFieldDecoratorAt resolves a field decorator by path.
func (n *Namespace) ModelFieldDecoratorAt(path []string) (decorator.Decorator[schema.Field], bool) {
	return resolve(n, path, func(ns *Namespace) *table[decorator.Decorator[schema.Field]] { return &ns.modelFieldDecorators })
}

// ModelRelationDecorator returns the relation decorator defined directly in n.
func (n *Namespace) ModelRelationDecorator(name string) (decorator.Decorator[schema.Relation], bool) {
	return n.modelRelationDecorators.get(name)
}

// ModelRelationDecoratorAt resolves a relation decorator by path.
func (n *Namespace) ModelRelationDecoratorAt(path []string) (decorator.Decorator[schema.Relation], bool) {
	return resolve(n, path, func(ns *Namespace) *table[decorator.Decorator[schema.Relation]] { return &ns.modelRelationDecorators })
}

// ModelPropertyDecorator returns the property decorator defined directly in n.
func (n *Namespace) ModelPropertyDecorator(name string) (decorator.Decorator[schema.Property], bool) {
	return n.modelPropertyDecorators.get(name)
}

// ModelPropertyDecoratorAt resolves a property decorator by path.
func (n *Namespace) ModelPropertyDecoratorAt(path []string) (decorator.Decorator[schema.Property], bool) {
	return resolve(n, path, func(ns *Namespace) *table[decorator.Decorator[schema.Property]] { return &ns.modelPropertyDecorators })
}

// EnumDecorator returns the enum decorator defined directly in n.
func (n *Namespace) EnumDecorator(name string) (decorator.Decorator[schema.Enum], bool) {
	return n.enumDecorators.get(name)
}

// EnumDecoratorAt resolves an enum decorator by path.
func (n *Namespace) EnumDecoratorAt(path []string) (decorator.Decorator[schema.Enum], bool) {
	return resolve(n, path, func(ns *Namespace) *table[decorator.Decorator[schema.Enum]] { return &ns.enumDecorators })
}

// EnumMemberDecorator returns the member decorator defined directly in n.
func (n *Namespace) EnumMemberDecorator(name string) (decorator.Decorator[schema.Member], bool) {
	return n.enumMemberDecorators.get(name)
}

// EnumMemberDecoratorAt resolves a member decorator by path.
func (n *Namespace) EnumMemberDecoratorAt(path []string) (decorator.Decorator[schema.Member], bool) {
	return resolve(n, path, func(ns *Namespace) *table[decorator.Decorator[schema.Member]] { return &ns.enumMemberDecorators })
}

// Struct returns a struct defined directly in n.
func (n *Namespace) Struct(name string) (*schema.Struct, bool) { return n.structs.get(name) }

// StructAt resolves a struct by path.
func (n *Namespace) StructAt(path []string) (*schema.Struct, bool) {
	return resolve(n, path, func(ns *Namespace) *table[*schema.Struct] { return &ns.structs })
}

// Model returns a model defined directly in n.
func (n *Namespace) Model(name string) (*schema.Model, bool) { return n.models.get(name) }

// ModelAt resolves a model by path.
func (n *Namespace) ModelAt(path []string) (*schema.Model, bool) {
	return resolve(n, path, func(ns *Namespace) *table[*schema.Model] { return &ns.models })
}

// Enum returns an enum defined directly in n.
func (n *Namespace) Enum(name string) (*schema.Enum, bool) { return n.enums.get(name) }

// EnumAt resolves an enum by path.
func (n *Namespace) EnumAt(path []string) (*schema.Enum, bool) {
	return resolve(n, path, func(ns *Namespace) *table[*schema.Enum] { return &ns.enums })
}

// HandlerGroup returns a handler group defined directly in n.
func (n *Namespace) HandlerGroup(name string) (*handler.Group, bool) {
	return n.handlerGroups.get(name)
}

// HandlerGroupAt resolves a handler group by path.
func (n *Namespace) HandlerGroupAt(path []string) (*handler.Group, bool) {
	return resolve(n, path, func(ns *Namespace) *table[*handler.Group] { return &ns.handlerGroups })
}

// Middleware returns a middleware defined directly in n.
func (n *Namespace) Middleware(name string) (middleware.Definition, bool) {
	return n.middlewares.get(name)
}

// MiddlewareAt resolves a middleware by path.
func (n *Namespace) MiddlewareAt(path []string) (middleware.Definition, bool) {
	return resolve(n, path, func(ns *Namespace) *table[middleware.Definition] { return &ns.middlewares })
}
