package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/schema"
	"github.com/artpar/pipekit/core/value"
)

// PipeKey marks a nested pipeline argument.
const PipeKey = "$pipe"

// ParseFile parses every document in a YAML file.
func ParseFile(path string) ([]*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse parses every document in data. source prefixes errors.
func Parse(source string, data []byte) ([]*Document, error) {
	p := parser{source: source}
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var docs []*Document
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, failure.AsDefinition(source, err)
		}
		doc, err := p.document(&node)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ParseChain parses a single chain such as "[trim, {padStart: {width: 3}}]".
func ParseChain(source string, data []byte) (pipeline.Chain, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, failure.AsDefinition(source, err)
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		return parser{source: source}.chain(node.Content[0])
	}
	return nil, failure.Definition(source, "empty pipeline")
}

// ParseDir parses all .yaml and .yml files under dir, including
// subdirectories, in lexical order.
func ParseDir(dir string) ([]*Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var docs []*Document
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, sub...)
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		parsed, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, parsed...)
	}
	return docs, nil
}

// SplitPath splits a dotted symbol name.
func SplitPath(name string) []string {
	return strings.Split(name, ".")
}

type parser struct {
	source string
}

func (p parser) errorf(node *yaml.Node, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if node != nil && node.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", node.Line, msg)
	}
	return failure.Definition(p.source, msg)
}

type pair struct {
	key   string
	keyAt *yaml.Node
	value *yaml.Node
}

// mapping returns the key/value pairs of a mapping node in document order.
// A null node is an empty mapping.
func (p parser) mapping(node *yaml.Node, what string) ([]pair, error) {
	node = resolveAlias(node)
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, p.errorf(node, "%s must be a mapping", what)
	}
	pairs := make([]pair, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k := node.Content[i]
		if k.Kind != yaml.ScalarNode {
			return nil, p.errorf(k, "%s keys must be scalars", what)
		}
		pairs = append(pairs, pair{key: k.Value, keyAt: k, value: node.Content[i+1]})
	}
	return pairs, nil
}

func (p parser) sequence(node *yaml.Node, what string) ([]*yaml.Node, error) {
	node = resolveAlias(node)
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, p.errorf(node, "%s must be a sequence", what)
	}
	return node.Content, nil
}

func (p parser) scalar(node *yaml.Node, what string) (string, error) {
	node = resolveAlias(node)
	if node.Kind != yaml.ScalarNode {
		return "", p.errorf(node, "%s must be a scalar", what)
	}
	return node.Value, nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

func isNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null")
}

func (p parser) document(node *yaml.Node) (*Document, error) {
	doc := &Document{Source: p.source}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	pairs, err := p.mapping(node, "document")
	if err != nil {
		return nil, err
	}
	for _, kv := range pairs {
		switch kv.key {
		case "namespace":
			name, err := p.scalar(kv.value, "namespace")
			if err != nil {
				return nil, err
			}
			if name != "" {
				doc.Namespace = SplitPath(name)
			}
		case "pipelines":
			doc.Pipelines, err = p.pipelines(kv.value)
		case "models":
			doc.Models, err = p.models(kv.value)
		case "enums":
			doc.Enums, err = p.enums(kv.value)
		case "handlers":
			doc.Handlers, err = p.groups(kv.value)
		default:
			err = p.errorf(kv.keyAt, "unknown key %q", kv.key)
		}
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// chain parses a sequence of stages.
func (p parser) chain(node *yaml.Node) (pipeline.Chain, error) {
	items, err := p.sequence(node, "pipeline")
	if err != nil {
		return nil, err
	}
	chain := make(pipeline.Chain, 0, len(items))
	for _, item := range items {
		stage, err := p.stage(item)
		if err != nil {
			return nil, err
		}
		chain = append(chain, stage)
	}
	return chain, nil
}

// stage parses "name" or "name: {arg: value}".
func (p parser) stage(node *yaml.Node) (pipeline.Stage, error) {
	node = resolveAlias(node)
	if node.Kind == yaml.ScalarNode {
		if node.Value == "" {
			return pipeline.Stage{}, p.errorf(node, "stage name is empty")
		}
		return pipeline.Stage{Path: SplitPath(node.Value), Arguments: pipeline.NewArguments()}, nil
	}
	pairs, err := p.mapping(node, "stage")
	if err != nil {
		return pipeline.Stage{}, err
	}
	if len(pairs) != 1 {
		return pipeline.Stage{}, p.errorf(node, "stage must have exactly one name, got %d", len(pairs))
	}
	args, err := p.arguments(pairs[0].value)
	if err != nil {
		return pipeline.Stage{}, err
	}
	return pipeline.Stage{Path: SplitPath(pairs[0].key), Arguments: args}, nil
}

func (p parser) stages(node *yaml.Node) ([]pipeline.Stage, error) {
	chain, err := p.chain(node)
	return []pipeline.Stage(chain), err
}

func (p parser) arguments(node *yaml.Node) (pipeline.Arguments, error) {
	args := pipeline.NewArguments()
	pairs, err := p.mapping(node, "stage arguments")
	if err != nil {
		return args, err
	}
	for _, kv := range pairs {
		arg, err := p.argument(kv.value)
		if err != nil {
			return args, err
		}
		args = args.With(kv.key, arg)
	}
	return args, nil
}

func (p parser) argument(node *yaml.Node) (pipeline.Argument, error) {
	node = resolveAlias(node)
	if node.Kind == yaml.MappingNode && len(node.Content) == 2 && node.Content[0].Value == PipeKey {
		chain, err := p.chain(node.Content[1])
		if err != nil {
			return pipeline.Argument{}, err
		}
		return pipeline.Unbound(chain), nil
	}
	v, err := p.literal(node)
	if err != nil {
		return pipeline.Argument{}, err
	}
	return pipeline.Literal(v), nil
}

// literal converts a node to a value, keeping mapping order.
func (p parser) literal(node *yaml.Node) (value.Value, error) {
	node = resolveAlias(node)
	switch node.Kind {
	case yaml.ScalarNode:
		var raw any
		if err := node.Decode(&raw); err != nil {
			return value.Null(), p.errorf(node, "%v", err)
		}
		v, err := value.FromAny(raw)
		if err != nil {
			// Timestamps and other tagged scalars keep their source text.
			return value.String(node.Value), nil
		}
		return v, nil
	case yaml.SequenceNode:
		items := make([]value.Value, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := p.literal(child)
			if err != nil {
				return value.Null(), err
			}
			items = append(items, v)
		}
		return value.Array(items...), nil
	case yaml.MappingNode:
		pairs, err := p.mapping(node, "value")
		if err != nil {
			return value.Null(), err
		}
		entries := make([]value.Entry, 0, len(pairs))
		for _, kv := range pairs {
			v, err := p.literal(kv.value)
			if err != nil {
				return value.Null(), err
			}
			entries = append(entries, value.Entry{Key: kv.key, Value: v})
		}
		return value.Dictionary(entries...), nil
	}
	return value.Null(), p.errorf(node, "unsupported value")
}

func (p parser) pipelines(node *yaml.Node) ([]Pipeline, error) {
	pairs, err := p.mapping(node, "pipelines")
	if err != nil {
		return nil, err
	}
	out := make([]Pipeline, 0, len(pairs))
	for _, kv := range pairs {
		def := Pipeline{Name: kv.key}
		body := resolveAlias(kv.value)
		if body.Kind == yaml.MappingNode {
			// Long form: {description: ..., stages: [...]}.
			fields, err := p.mapping(body, "pipeline "+kv.key)
			if err != nil {
				return nil, err
			}
			for _, f := range fields {
				switch f.key {
				case "description":
					def.Description, err = p.scalar(f.value, "description")
				case "stages":
					def.Chain, err = p.chain(f.value)
				default:
					err = p.errorf(f.keyAt, "unknown pipeline key %q", f.key)
				}
				if err != nil {
					return nil, err
				}
			}
		} else if def.Chain, err = p.chain(body); err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}

func (p parser) models(node *yaml.Node) ([]Model, error) {
	pairs, err := p.mapping(node, "models")
	if err != nil {
		return nil, err
	}
	out := make([]Model, 0, len(pairs))
	for _, kv := range pairs {
		m := Model{Name: kv.key}
		fields, err := p.mapping(kv.value, "model "+kv.key)
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			switch f.key {
			case "decorators":
				m.Decorators, err = p.stages(f.value)
			case "fields":
				m.Fields, err = p.fields(f.value)
			case "relations":
				m.Relations, err = p.relations(f.value)
			case "properties":
				m.Properties, err = p.properties(f.value)
			default:
				err = p.errorf(f.keyAt, "unknown model key %q", f.key)
			}
			if err != nil {
				return nil, err
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// fields accepts "name: type" shorthand or "name: {type, decorators}".
func (p parser) fields(node *yaml.Node) ([]Field, error) {
	pairs, err := p.mapping(node, "fields")
	if err != nil {
		return nil, err
	}
	out := make([]Field, 0, len(pairs))
	for _, kv := range pairs {
		f := Field{Name: kv.key, Type: schema.FieldTypeAny}
		body := resolveAlias(kv.value)
		if body.Kind == yaml.ScalarNode && !isNull(body) {
			f.Type = schema.FieldType(body.Value)
		} else {
			attrs, err := p.mapping(body, "field "+kv.key)
			if err != nil {
				return nil, err
			}
			for _, a := range attrs {
				switch a.key {
				case "type":
					var t string
					t, err = p.scalar(a.value, "type")
					f.Type = schema.FieldType(t)
				case "decorators":
					f.Decorators, err = p.stages(a.value)
				default:
					err = p.errorf(a.keyAt, "unknown field key %q", a.key)
				}
				if err != nil {
					return nil, err
				}
			}
		}
		if !f.Type.Valid() {
			return nil, p.errorf(body, "field %s has unknown type %q", f.Name, f.Type)
		}
		out = append(out, f)
	}
	return out, nil
}

func (p parser) relations(node *yaml.Node) ([]Relation, error) {
	pairs, err := p.mapping(node, "relations")
	if err != nil {
		return nil, err
	}
	out := make([]Relation, 0, len(pairs))
	for _, kv := range pairs {
		r := Relation{Name: kv.key}
		attrs, err := p.mapping(kv.value, "relation "+kv.key)
		if err != nil {
			return nil, err
		}
		for _, a := range attrs {
			switch a.key {
			case "model":
				r.Model, err = p.scalar(a.value, "model")
			case "many":
				err = a.value.Decode(&r.Many)
				if err != nil {
					err = p.errorf(a.value, "many must be a boolean")
				}
			case "decorators":
				r.Decorators, err = p.stages(a.value)
			default:
				err = p.errorf(a.keyAt, "unknown relation key %q", a.key)
			}
			if err != nil {
				return nil, err
			}
		}
		if r.Model == "" {
			return nil, p.errorf(kv.keyAt, "relation %s needs a model", r.Name)
		}
		out = append(out, r)
	}
	return out, nil
}

func (p parser) properties(node *yaml.Node) ([]Property, error) {
	pairs, err := p.mapping(node, "properties")
	if err != nil {
		return nil, err
	}
	out := make([]Property, 0, len(pairs))
	for _, kv := range pairs {
		prop := Property{Name: kv.key}
		prop.Decorators, err = p.decoratorsOnly(kv.value, "property "+kv.key)
		if err != nil {
			return nil, err
		}
		out = append(out, prop)
	}
	return out, nil
}

// decoratorsOnly parses a body that may only carry decorators. A bare
// sequence is read as the decorator list.
func (p parser) decoratorsOnly(node *yaml.Node, what string) ([]pipeline.Stage, error) {
	node = resolveAlias(node)
	if node != nil && node.Kind == yaml.SequenceNode {
		return p.stages(node)
	}
	attrs, err := p.mapping(node, what)
	if err != nil {
		return nil, err
	}
	var out []pipeline.Stage
	for _, a := range attrs {
		if a.key != "decorators" {
			return nil, p.errorf(a.keyAt, "unknown %s key %q", what, a.key)
		}
		if out, err = p.stages(a.value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p parser) enums(node *yaml.Node) ([]Enum, error) {
	pairs, err := p.mapping(node, "enums")
	if err != nil {
		return nil, err
	}
	out := make([]Enum, 0, len(pairs))
	for _, kv := range pairs {
		e := Enum{Name: kv.key}
		body := resolveAlias(kv.value)
		if body.Kind == yaml.SequenceNode {
			e.Members, err = p.members(body)
		} else {
			var attrs []pair
			attrs, err = p.mapping(body, "enum "+kv.key)
			for _, a := range attrs {
				if err != nil {
					break
				}
				switch a.key {
				case "decorators":
					e.Decorators, err = p.stages(a.value)
				case "members":
					e.Members, err = p.members(a.value)
				default:
					err = p.errorf(a.keyAt, "unknown enum key %q", a.key)
				}
			}
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// members accepts a list of names or a mapping from name to decorators.
func (p parser) members(node *yaml.Node) ([]Member, error) {
	node = resolveAlias(node)
	if node != nil && node.Kind == yaml.SequenceNode {
		out := make([]Member, 0, len(node.Content))
		for _, item := range node.Content {
			name, err := p.scalar(item, "member")
			if err != nil {
				return nil, err
			}
			out = append(out, Member{Name: name})
		}
		return out, nil
	}
	pairs, err := p.mapping(node, "members")
	if err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(pairs))
	for _, kv := range pairs {
		m := Member{Name: kv.key}
		if m.Decorators, err = p.decoratorsOnly(kv.value, "member "+kv.key); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (p parser) groups(node *yaml.Node) ([]Group, error) {
	pairs, err := p.mapping(node, "handlers")
	if err != nil {
		return nil, err
	}
	out := make([]Group, 0, len(pairs))
	for _, kv := range pairs {
		g := Group{Name: kv.key}
		handlers, err := p.mapping(kv.value, "handler group "+kv.key)
		if err != nil {
			return nil, err
		}
		for _, h := range handlers {
			def, err := p.handler(h)
			if err != nil {
				return nil, err
			}
			g.Handlers = append(g.Handlers, def)
		}
		out = append(out, g)
	}
	return out, nil
}

// handler accepts a bare chain or {pipeline: [...], middlewares: [...]}.
func (p parser) handler(kv pair) (Handler, error) {
	h := Handler{Name: kv.key}
	body := resolveAlias(kv.value)
	if body.Kind == yaml.SequenceNode {
		chain, err := p.chain(body)
		h.Chain = chain
		return h, err
	}
	attrs, err := p.mapping(body, "handler "+kv.key)
	if err != nil {
		return h, err
	}
	for _, a := range attrs {
		switch a.key {
		case "pipeline":
			h.Chain, err = p.chain(a.value)
		case "middlewares":
			h.Middlewares, err = p.stages(a.value)
		default:
			err = p.errorf(a.keyAt, "unknown handler key %q", a.key)
		}
		if err != nil {
			return h, err
		}
	}
	return h, nil
}
