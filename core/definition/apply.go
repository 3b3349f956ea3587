package definition

import (
	"sort"
	"strings"

	"github.com/artpar/pipekit/core/decorator"
	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/handler"
	"github.com/artpar/pipekit/core/middleware"
	"github.com/artpar/pipekit/core/namespace"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/schema"
	"github.com/artpar/pipekit/core/value"
)

// Named is a bound named pipeline.
type Named struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Source      string            `json:"source,omitempty" yaml:"source,omitempty"`
	Pipeline    pipeline.Pipeline `json:"pipeline" yaml:"pipeline"`
}

// namedItem lets a named pipeline be used as a stage of another chain. Its
// pipeline is set once every named pipeline has been declared, so chains
// may refer to pipelines defined later or in other files.
type namedItem struct {
	pipeline pipeline.Pipeline
}

func (n *namedItem) Call(args pipeline.Arguments, ctx pipeline.Ctx) (value.Value, error) {
	return ctx.Run(n.pipeline)
}

// Apply defines the symbols of docs in main and binds their named
// pipelines. Named pipelines are also registered as pipeline items in their
// namespace. The result is sorted by name.
func Apply(main *namespace.Namespace, docs []*Document) ([]Named, error) {
	type pending struct {
		doc  *Document
		ns   *namespace.Namespace
		def  Pipeline
		item *namedItem
	}

	var declared []pending
	for _, doc := range docs {
		ns := main.NamespaceOrCreateAt(doc.Namespace)
		for _, def := range doc.Pipelines {
			item := &namedItem{}
			ns.DefinePipelineItem(def.Name, item)
			declared = append(declared, pending{doc: doc, ns: ns, def: def, item: item})
		}
	}

	byName := make(map[string]Named, len(declared))
	names := make(map[*namedItem]string, len(declared))
	for _, d := range declared {
		full := strings.Join(append(d.ns.Path(), d.def.Name), ".")
		p, err := d.def.Chain.Bind(d.ns)
		if err != nil {
			return nil, failure.AsDefinition(d.doc.Source, failure.AsDefinition(full, err))
		}
		d.item.pipeline = p
		names[d.item] = full
		byName[full] = Named{Name: full, Description: d.def.Description, Source: d.doc.Source, Pipeline: p}
	}

	for _, d := range declared {
		if err := checkCycle(d.item, names); err != nil {
			return nil, failure.AsDefinition(d.doc.Source, err)
		}
	}

	for _, doc := range docs {
		if err := applyDocument(main, doc); err != nil {
			return nil, failure.AsDefinition(doc.Source, err)
		}
	}
	for _, doc := range docs {
		if err := checkRelations(main, doc); err != nil {
			return nil, failure.AsDefinition(doc.Source, err)
		}
	}

	named := make([]Named, 0, len(byName))
	for _, n := range byName {
		named = append(named, n)
	}
	sort.Slice(named, func(i, j int) bool { return named[i].Name < named[j].Name })
	return named, nil
}

// checkCycle fails when start reaches itself through the stages or nested
// pipeline arguments of the named pipelines it calls.
func checkCycle(start *namedItem, names map[*namedItem]string) error {
	visited := make(map[*namedItem]bool)
	var walk func(n *namedItem, trail []string) []string
	walk = func(n *namedItem, trail []string) []string {
		for _, callee := range callees(n.pipeline) {
			next := append(trail[:len(trail):len(trail)], names[callee])
			if callee == start {
				return next
			}
			if visited[callee] {
				continue
			}
			visited[callee] = true
			if found := walk(callee, next); found != nil {
				return found
			}
		}
		return nil
	}
	full := names[start]
	if trail := walk(start, []string{full}); trail != nil {
		return failure.Definitionf(full, "pipeline refers to itself through %s", strings.Join(trail, " -> "))
	}
	return nil
}

// callees lists the named pipelines p invokes, including those inside
// nested pipeline arguments.
func callees(p pipeline.Pipeline) []*namedItem {
	var out []*namedItem
	for _, item := range p.Items {
		if n, ok := item.Callee().(*namedItem); ok {
			out = append(out, n)
		}
		for _, name := range item.Arguments.Names() {
			arg, _ := item.Arguments.Get(name)
			if nested, ok := arg.Pipeline(); ok {
				out = append(out, callees(nested)...)
			}
		}
	}
	return out
}

func applyDocument(main *namespace.Namespace, doc *Document) error {
	ns := main.NamespaceOrCreateAt(doc.Namespace)
	for _, m := range doc.Models {
		if _, err := ns.DefineModel(m.Name, buildModel(ns, m)); err != nil {
			return err
		}
	}
	for _, e := range doc.Enums {
		if _, err := ns.DefineEnum(e.Name, buildEnum(ns, e)); err != nil {
			return err
		}
	}
	for _, g := range doc.Handlers {
		if _, err := ns.DefineHandlerGroup(g.Name, buildGroup(ns, g)); err != nil {
			return err
		}
	}
	return nil
}

// applications resolves decorator stages against ns and binds their
// nested pipeline arguments.
func applications[T any](ns *namespace.Namespace, stages []pipeline.Stage, find func([]string) (decorator.Decorator[T], bool)) ([]decorator.Application[T], error) {
	apps := make([]decorator.Application[T], 0, len(stages))
	for _, stage := range stages {
		name := "@" + strings.Join(stage.Path, ".")
		d, ok := find(stage.Path)
		if !ok {
			return nil, failure.Definition(name, "decorator is not defined")
		}
		args, err := stage.Arguments.Bind(ns, name)
		if err != nil {
			return nil, err
		}
		apps = append(apps, decorator.Application[T]{Decorator: d, Arguments: args})
	}
	return apps, nil
}

func decorate[T any](ns *namespace.Namespace, stages []pipeline.Stage, target *T, find func([]string) (decorator.Decorator[T], bool)) error {
	apps, err := applications(ns, stages, find)
	if err != nil {
		return err
	}
	return decorator.ApplyAll(target, apps)
}

func buildModel(ns *namespace.Namespace, def Model) func(m *schema.Model) error {
	return func(m *schema.Model) error {
		if err := decorate(ns, def.Decorators, m, ns.ModelDecoratorAt); err != nil {
			return err
		}
		for _, fd := range def.Fields {
			f := schema.NewField(fd.Name, fd.Type)
			if err := decorate(ns, fd.Decorators, f, ns.ModelFieldDecoratorAt); err != nil {
				return failure.AsDefinition(fd.Name, err)
			}
			m.Fields = append(m.Fields, f)
		}
		for _, rd := range def.Relations {
			r := &schema.Relation{Name: rd.Name, Model: rd.Model, Many: rd.Many}
			if err := decorate(ns, rd.Decorators, r, ns.ModelRelationDecoratorAt); err != nil {
				return failure.AsDefinition(rd.Name, err)
			}
			m.Relations = append(m.Relations, r)
		}
		for _, pd := range def.Properties {
			p := &schema.Property{Name: pd.Name}
			if err := decorate(ns, pd.Decorators, p, ns.ModelPropertyDecoratorAt); err != nil {
				return failure.AsDefinition(pd.Name, err)
			}
			m.Properties = append(m.Properties, p)
		}
		return nil
	}
}

func buildEnum(ns *namespace.Namespace, def Enum) func(e *schema.Enum) error {
	return func(e *schema.Enum) error {
		if err := decorate(ns, def.Decorators, e, ns.EnumDecoratorAt); err != nil {
			return err
		}
		for _, md := range def.Members {
			m := &schema.Member{Name: md.Name, Value: md.Name}
			if err := decorate(ns, md.Decorators, m, ns.EnumMemberDecoratorAt); err != nil {
				return failure.AsDefinition(md.Name, err)
			}
			e.Members = append(e.Members, m)
		}
		return nil
	}
}

func buildGroup(ns *namespace.Namespace, def Group) func(g *handler.Group) error {
	return func(g *handler.Group) error {
		for _, hd := range def.Handlers {
			p, err := hd.Chain.Bind(ns)
			if err != nil {
				return failure.AsDefinition(hd.Name, err)
			}
			mws := make([]middleware.Middleware, 0, len(hd.Middlewares))
			names := make([]string, 0, len(hd.Middlewares))
			for _, stage := range hd.Middlewares {
				name := strings.Join(stage.Path, ".")
				mw, err := createMiddleware(ns, stage)
				if err != nil {
					return failure.AsDefinition(hd.Name, err)
				}
				mws = append(mws, mw)
				names = append(names, name)
			}
			g.DefineHandler(hd.Name, middleware.Chain(handler.FromPipeline(p, ns), mws...), names...)
		}
		return nil
	}
}

func createMiddleware(ns *namespace.Namespace, stage pipeline.Stage) (middleware.Middleware, error) {
	name := strings.Join(stage.Path, ".")
	def, ok := ns.MiddlewareAt(stage.Path)
	if !ok {
		return nil, failure.Definition(name, "middleware is not defined")
	}
	args, err := stage.Arguments.Bind(ns, name)
	if err != nil {
		return nil, err
	}
	if def.Creator == nil {
		return nil, failure.Definition(def.FullName(), "middleware has no creator")
	}
	mw, err := def.Creator(args)
	if err != nil {
		return nil, failure.AsDefinition(def.FullName(), err)
	}
	return mw, nil
}

// checkRelations verifies that every relation of doc's models points at a
// defined model.
func checkRelations(main *namespace.Namespace, doc *Document) error {
	ns, ok := main.NamespaceAt(doc.Namespace)
	if !ok {
		return nil
	}
	for _, md := range doc.Models {
		m, ok := ns.Model(md.Name)
		if !ok {
			continue
		}
		for _, r := range m.Relations {
			if _, ok := ns.ModelAt(SplitPath(r.Model)); !ok {
				return failure.Definitionf(m.FullName()+"."+r.Name, "related model %s is not defined", r.Model)
			}
		}
	}
	return nil
}
