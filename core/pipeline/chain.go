package pipeline

import (
	"strings"

	"github.com/artpar/pipekit/core/failure"
)

// Stage is one unbound step of a declarative chain: an item path and its
// arguments, which may contain further unbound chains.
type Stage struct {
	Path      []string  `json:"path" yaml:"path"`
	Arguments Arguments `json:"arguments" yaml:"arguments"`
}

// Chain is a declarative, not yet bound pipeline.
type Chain []Stage

// Bind looks up every stage's item and binds nested chain arguments,
// producing an executable pipeline. An unknown item is a definition error.
func (c Chain) Bind(lookup Lookup) (Pipeline, error) {
	items := make([]BoundItem, 0, len(c))
	for _, stage := range c {
		name := strings.Join(stage.Path, ".")
		item, ok := lookup.PipelineItemAt(stage.Path)
		if !ok {
			return Pipeline{}, failure.Definition(name, "pipeline item is not defined")
		}
		args, err := stage.Arguments.Bind(lookup, name)
		if err != nil {
			return Pipeline{}, err
		}
		items = append(items, item.Bind(args))
	}
	return Pipeline{Items: items}, nil
}

// Bind returns a copy of a with every unbound chain argument bound through
// lookup. Errors are prefixed "item(arg)".
func (a Arguments) Bind(lookup Lookup, item string) (Arguments, error) {
	out := NewArguments()
	for _, name := range a.Names() {
		arg, _ := a.Get(name)
		if nested, ok := arg.Chain(); ok {
			p, err := nested.Bind(lookup)
			if err != nil {
				return Arguments{}, failure.Prefix(ArgPrefix(item, name), err)
			}
			arg = Nested(p)
		}
		out = out.With(name, arg)
	}
	return out, nil
}
