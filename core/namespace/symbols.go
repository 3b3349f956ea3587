package namespace

import (
	"strings"

	"github.com/artpar/pipekit/core/handler"
	"github.com/artpar/pipekit/core/schema"
)

// SymbolKind names a symbol table.
type SymbolKind string

const (
	KindNamespace         SymbolKind = "namespace"
	KindPipelineItem      SymbolKind = "pipeline_item"
	KindModelDecorator    SymbolKind = "model_decorator"
	KindFieldDecorator    SymbolKind = "field_decorator"
	KindRelationDecorator SymbolKind = "relation_decorator"
	KindPropertyDecorator SymbolKind = "property_decorator"
	KindEnumDecorator     SymbolKind = "enum_decorator"
	KindMemberDecorator   SymbolKind = "member_decorator"
	KindStruct            SymbolKind = "struct"
	KindModel             SymbolKind = "model"
	KindEnum              SymbolKind = "enum"
	KindHandlerGroup      SymbolKind = "handler_group"
	KindMiddleware        SymbolKind = "middleware"
)

// Symbol is one registered symbol.
type Symbol struct {
	Kind SymbolKind `json:"kind" yaml:"kind"`
	Path []string   `json:"path" yaml:"path"`
}

// FullName returns the dotted path.
func (s Symbol) FullName() string { return strings.Join(s.Path, ".") }

// Symbols lists every symbol in n and its descendants. Within a namespace,
// tables are listed in a fixed order and names are sorted; child namespaces
// follow their parent's symbols.
func (n *Namespace) Symbols() []Symbol {
	var out []Symbol
	n.collect(&out)
	return out
}

func (n *Namespace) collect(out *[]Symbol) {
	add := func(kind SymbolKind, names []string) {
		for _, name := range names {
			*out = append(*out, Symbol{Kind: kind, Path: n.childPath(name)})
		}
	}
	add(KindPipelineItem, n.pipelineItems.names())
	add(KindModelDecorator, n.modelDecorators.names())
	add(KindFieldDecorator, n.modelFieldDecorators.names())
	add(KindRelationDecorator, n.modelRelationDecorators.names())
	add(KindPropertyDecorator, n.modelPropertyDecorators.names())
	add(KindEnumDecorator, n.enumDecorators.names())
	add(KindMemberDecorator, n.enumMemberDecorators.names())
	add(KindStruct, n.structs.names())
	add(KindModel, n.models.names())
	add(KindEnum, n.enums.names())
	add(KindHandlerGroup, n.handlerGroups.names())
	add(KindMiddleware, n.middlewares.names())

	for _, name := range n.namespaces.names() {
		child, _ := n.namespaces.get(name)
		*out = append(*out, Symbol{Kind: KindNamespace, Path: child.Path()})
		child.collect(out)
	}
}

// AllModels returns every model in n and its descendants, in symbol order.
func (n *Namespace) AllModels() []*schema.Model {
	var out []*schema.Model
	n.walk(func(ns *Namespace) {
		for _, name := range ns.models.names() {
			m, _ := ns.models.get(name)
			out = append(out, m)
		}
	})
	return out
}

// AllHandlerGroups returns every handler group in n and its descendants.
func (n *Namespace) AllHandlerGroups() []*handler.Group {
	var out []*handler.Group
	n.walk(func(ns *Namespace) {
		for _, name := range ns.handlerGroups.names() {
			g, _ := ns.handlerGroups.get(name)
			out = append(out, g)
		}
	})
	return out
}

func (n *Namespace) walk(fn func(*Namespace)) {
	fn(n)
	for _, name := range n.namespaces.names() {
		child, _ := n.namespaces.get(name)
		child.walk(fn)
	}
}
