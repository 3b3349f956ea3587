package namespace

import (
	"github.com/artpar/pipekit/core/decorator"
	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/handler"
	"github.com/artpar/pipekit/core/middleware"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/schema"
)

// DefinePipelineItem registers a pipeline item.
func (n *Namespace) DefinePipelineItem(name string, call pipeline.Call) pipeline.Item {
	item := pipeline.NewItem(n.childPath(name), call)
	n.pipelineItems.set(name, item)
	return item
}

// DefinePipelineFunc registers a plain function as a pipeline item.
func (n *Namespace) DefinePipelineFunc(name string, fn pipeline.CallFunc) pipeline.Item {
	return n.DefinePipelineItem(name, fn)
}

// DefineModelDecorator registers a model decorator.
func (n *Namespace) DefineModelDecorator(name string, fn decorator.Func[schema.Model]) {
	n.modelDecorators.set(name, decorator.New(n.childPath(name), fn))
}

// DefineModelFieldDecorator registers a field decorator.
func (n *Namespace) DefineModelFieldDecorator(name string, fn decorator.Func[schema.Field]) {
	n.modelFieldDecorators.set(name, decorator.New(n.childPath(name), fn))
}

// DefineModelRelationDecorator registers a relation decorator.
func (n *Namespace) DefineModelRelationDecorator(name string, fn decorator.Func[schema.Relation]) {
	n.modelRelationDecorators.set(name, decorator.New(n.childPath(name), fn))
}

// DefineModelPropertyDecorator registers a property decorator.
func (n *Namespace) DefineModelPropertyDecorator(name string, fn decorator.Func[schema.Property]) {
	n.modelPropertyDecorators.set(name, decorator.New(n.childPath(name), fn))
}

// DefineEnumDecorator registers an enum decorator.
func (n *Namespace) DefineEnumDecorator(name string, fn decorator.Func[schema.Enum]) {
	n.enumDecorators.set(name, decorator.New(n.childPath(name), fn))
}

// DefineEnumMemberDecorator registers an enum member decorator.
func (n *Namespace) DefineEnumMemberDecorator(name string, fn decorator.Func[schema.Member]) {
	n.enumMemberDecorators.set(name, decorator.New(n.childPath(name), fn))
}

// DefineStruct registers a struct built by build.
func (n *Namespace) DefineStruct(name string, build func(s *schema.Struct)) *schema.Struct {
	s := schema.NewStruct(n.childPath(name))
	if build != nil {
		build(s)
	}
	n.structs.set(name, s)
	return s
}

// DefineModel registers a model built by build. A build failure leaves the
// table unchanged and is returned as a definition error.
func (n *Namespace) DefineModel(name string, build func(m *schema.Model) error) (*schema.Model, error) {
	m := schema.NewModel(n.childPath(name))
	if build != nil {
		if err := build(m); err != nil {
			return nil, failure.AsDefinition(m.FullName(), err)
		}
	}
	n.models.set(name, m)
	return m, nil
}

// DefineEnum registers an enum built by build.
func (n *Namespace) DefineEnum(name string, build func(e *schema.Enum) error) (*schema.Enum, error) {
	e := schema.NewEnum(n.childPath(name))
	if build != nil {
		if err := build(e); err != nil {
			return nil, failure.AsDefinition(e.FullName(), err)
		}
	}
	n.enums.set(name, e)
	return e, nil
}

// DefineHandlerGroup registers a handler group built by build.
func (n *Namespace) DefineHandlerGroup(name string, build func(g *handler.Group) error) (*handler.Group, error) {
	g := handler.NewGroup(n.childPath(name))
	if build != nil {
		if err := build(g); err != nil {
			return nil, failure.AsDefinition(g.FullName(), err)
		}
	}
	n.handlerGroups.set(name, g)
	return g, nil
}

// DefineMiddleware registers a middleware creator.
func (n *Namespace) DefineMiddleware(name string, creator middleware.Creator) middleware.Definition {
	d := middleware.Definition{Path: n.childPath(name), Creator: creator}
	n.middlewares.set(name, d)
	return d
}
