package pipeline

import (
	"bytes"
	"encoding/json"
	"regexp"

	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/value"
	"gopkg.in/yaml.v3"
)

// ArgumentKind identifies what an Argument holds.
type ArgumentKind int

const (
	// ArgumentLiteral is a terminal value.
	ArgumentLiteral ArgumentKind = iota
	// ArgumentPipeline is a nested pipeline already bound to its items.
	ArgumentPipeline
	// ArgumentChain is a nested chain whose items are looked up when resolved.
	ArgumentChain
)

// Argument is either a terminal value or an unevaluated nested pipeline.
type Argument struct {
	kind     ArgumentKind
	literal  value.Value
	pipeline Pipeline
	chain    Chain
}

// Literal wraps a terminal value.
func Literal(v value.Value) Argument {
	return Argument{kind: ArgumentLiteral, literal: v}
}

// Nested wraps a bound pipeline as an argument.
func Nested(p Pipeline) Argument {
	return Argument{kind: ArgumentPipeline, pipeline: p}
}

// Unbound wraps a declarative chain as an argument.
func Unbound(c Chain) Argument {
	return Argument{kind: ArgumentChain, chain: c}
}

// Kind returns what the argument holds.
func (a Argument) Kind() ArgumentKind { return a.kind }

// IsPipeline reports whether the argument needs evaluation.
func (a Argument) IsPipeline() bool { return a.kind != ArgumentLiteral }

// Literal returns the terminal value, if any.
func (a Argument) Literal() (value.Value, bool) {
	if a.kind != ArgumentLiteral {
		return value.Null(), false
	}
	return a.literal, true
}

// Pipeline returns the bound pipeline, if any.
func (a Argument) Pipeline() (Pipeline, bool) {
	if a.kind != ArgumentPipeline {
		return Pipeline{}, false
	}
	return a.pipeline, true
}

// Chain returns the unbound chain, if any.
func (a Argument) Chain() (Chain, bool) {
	if a.kind != ArgumentChain {
		return nil, false
	}
	return a.chain, true
}

// MarshalJSON encodes literals as their value and pipelines as {"$pipe": [...]}.
func (a Argument) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case ArgumentPipeline:
		return json.Marshal(map[string]any{pipeKey: a.pipeline.Items})
	case ArgumentChain:
		return json.Marshal(map[string]any{pipeKey: a.chain})
	default:
		return a.literal.MarshalJSON()
	}
}

// MarshalYAML mirrors MarshalJSON.
func (a Argument) MarshalYAML() (any, error) {
	switch a.kind {
	case ArgumentPipeline:
		return map[string]any{pipeKey: a.pipeline.Items}, nil
	case ArgumentChain:
		return map[string]any{pipeKey: a.chain}, nil
	default:
		return a.literal.MarshalYAML()
	}
}

// pipeKey marks an embedded pipeline in serialized arguments.
const pipeKey = "$pipe"

// Arguments is an ordered bag of named arguments. Names are unique; setting
// an existing name replaces it in place. The zero value is an empty bag.
// Arguments is immutable: With returns a new bag.
type Arguments struct {
	names   []string
	entries map[string]Argument
}

// NewArguments returns an empty bag.
func NewArguments() Arguments {
	return Arguments{}
}

// With returns a copy of the bag with name set to arg.
func (a Arguments) With(name string, arg Argument) Arguments {
	out := Arguments{
		names:   make([]string, len(a.names), len(a.names)+1),
		entries: make(map[string]Argument, len(a.entries)+1),
	}
	copy(out.names, a.names)
	for k, v := range a.entries {
		out.entries[k] = v
	}
	if _, exists := out.entries[name]; !exists {
		out.names = append(out.names, name)
	}
	out.entries[name] = arg
	return out
}

// WithValue is shorthand for With(name, Literal(v)).
func (a Arguments) WithValue(name string, v value.Value) Arguments {
	return a.With(name, Literal(v))
}

// Len returns the number of arguments.
func (a Arguments) Len() int { return len(a.names) }

// Names returns argument names in declaration order.
func (a Arguments) Names() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Has reports whether name is present.
func (a Arguments) Has(name string) bool {
	_, ok := a.entries[name]
	return ok
}

// Get returns the raw argument.
func (a Arguments) Get(name string) (Argument, bool) {
	arg, ok := a.entries[name]
	return arg, ok
}

// Object returns the raw argument, literal or pipeline, failing when absent.
// Resolve it with Ctx.ResolvePipeline.
func (a Arguments) Object(name string) (Argument, error) {
	arg, ok := a.entries[name]
	if !ok {
		return Argument{}, &failure.Error{Kind: failure.KindArgument, Err: failure.ErrMissingArgument}
	}
	return arg, nil
}

// Value returns a literal argument. Embedded pipelines are a type error here.
func (a Arguments) Value(name string) (value.Value, error) {
	arg, err := a.Object(name)
	if err != nil {
		return value.Null(), err
	}
	v, ok := arg.Literal()
	if !ok {
		return value.Null(), failure.WrongType("", errEmbeddedPipeline)
	}
	return v, nil
}

// Pipeline returns an embedded bound pipeline.
func (a Arguments) Pipeline(name string) (Pipeline, error) {
	arg, err := a.Object(name)
	if err != nil {
		return Pipeline{}, err
	}
	p, ok := arg.Pipeline()
	if !ok {
		return Pipeline{}, failure.WrongType("", errNotPipeline)
	}
	return p, nil
}

// String returns a literal string argument.
func (a Arguments) String(name string) (string, error) {
	return literalAs(a, name, value.Value.AsString)
}

// Int returns a literal integer argument.
func (a Arguments) Int(name string) (int64, error) {
	return literalAs(a, name, value.Value.AsInt)
}

// Float returns a literal numeric argument.
func (a Arguments) Float(name string) (float64, error) {
	return literalAs(a, name, value.Value.AsFloat)
}

// Bool returns a literal bool argument.
func (a Arguments) Bool(name string) (bool, error) {
	return literalAs(a, name, value.Value.AsBool)
}

// Regexp returns a literal regexp argument; string literals are compiled.
func (a Arguments) Regexp(name string) (*regexp.Regexp, error) {
	return literalAs(a, name, value.Value.AsRegexp)
}

// Strings returns a literal array of strings.
func (a Arguments) Strings(name string) ([]string, error) {
	return literalAs(a, name, value.Value.AsStrings)
}

func literalAs[T any](a Arguments, name string, into func(value.Value) (T, error)) (T, error) {
	var zero T
	v, err := a.Value(name)
	if err != nil {
		return zero, err
	}
	out, err := into(v)
	if err != nil {
		return zero, failure.WrongType("", err)
	}
	return out, nil
}

// MarshalJSON encodes the bag as an object in declaration order.
func (a Arguments) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range a.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(a.entries[name])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the bag as a mapping in declaration order.
func (a Arguments) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, name := range a.names {
		child := &yaml.Node{}
		if err := child.Encode(a.entries[name]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}, child)
	}
	return node, nil
}
