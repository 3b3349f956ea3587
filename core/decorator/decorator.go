// Package decorator implements the definition-time decorator protocol.
//
// A decorator is a named, synchronous function that mutates a schema
// construct while definitions load. The protocol is the same for every
// family; only the target type changes, so it is written once over T.
package decorator

import (
	"strings"

	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/pipeline"
)

// Func mutates target according to args.
type Func[T any] func(args pipeline.Arguments, target *T) error

// Decorator is a registered decorator for targets of type T.
type Decorator[T any] struct {
	Path []string
	Call Func[T]
}

// New creates a decorator at path.
func New[T any](path []string, call Func[T]) Decorator[T] {
	p := make([]string, len(path))
	copy(p, path)
	return Decorator[T]{Path: p, Call: call}
}

// Name returns the dotted path.
func (d Decorator[T]) Name() string {
	return strings.Join(d.Path, ".")
}

// Apply runs the decorator. Failures are definition errors prefixed with
// "@<path>".
func (d Decorator[T]) Apply(args pipeline.Arguments, target *T) error {
	if d.Call == nil {
		return failure.Definition("@"+d.Name(), "decorator has no implementation")
	}
	if err := d.Call(args, target); err != nil {
		return &failure.Error{Kind: failure.KindDefinition, Prefix: "@" + d.Name(), Err: err}
	}
	return nil
}

// Application pairs a decorator with the arguments it was written with.
type Application[T any] struct {
	Decorator Decorator[T]
	Arguments pipeline.Arguments
}

// ApplyAll runs applications in order and stops at the first failure.
func ApplyAll[T any](target *T, apps []Application[T]) error {
	for _, app := range apps {
		if err := app.Decorator.Apply(app.Arguments, target); err != nil {
			return err
		}
	}
	return nil
}
