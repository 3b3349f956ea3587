// Package pipeline implements the pipeline execution runtime: type-erased
// items, stages bound to argument bags, and evaluation of ordered chains
// over a single subject value.
//
// A chain runs strictly in order. Each stage receives a fresh Ctx whose
// subject is the previous stage's output; the first failure stops the chain.
// Arguments may themselves be pipelines, resolved recursively against the
// same context before the stage that needs them continues.
package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/artpar/pipekit/core/value"
)

var (
	errEmbeddedPipeline = errors.New("argument is an embedded pipeline, not a value")
	errNotPipeline      = errors.New("argument is not a pipeline")
)

// Pipeline is an ordered chain of bound items.
type Pipeline struct {
	Items []BoundItem `json:"items" yaml:"items"`
}

// New builds a pipeline from stages.
func New(items ...BoundItem) Pipeline {
	out := make([]BoundItem, len(items))
	copy(out, items)
	return Pipeline{Items: out}
}

// Len returns the number of stages.
func (p Pipeline) Len() int { return len(p.Items) }

// IsEmpty reports whether the pipeline has no stages.
func (p Pipeline) IsEmpty() bool { return len(p.Items) == 0 }

// Then returns a new pipeline with item appended.
func (p Pipeline) Then(item BoundItem) Pipeline {
	out := make([]BoundItem, len(p.Items), len(p.Items)+1)
	copy(out, p.Items)
	return Pipeline{Items: append(out, item)}
}

// String renders the stage names, e.g. "trim | toLowerCase".
func (p Pipeline) String() string {
	names := make([]string, len(p.Items))
	for i, item := range p.Items {
		names[i] = strings.Join(item.Path, ".")
	}
	return strings.Join(names, " | ")
}

// Run evaluates the chain with ctx's subject as the initial value. The
// context is checked between stages; a cancelled context stops the chain
// with the context's error.
func (p Pipeline) Run(ctx Ctx) (value.Value, error) {
	for _, item := range p.Items {
		if err := ctx.Context().Err(); err != nil {
			return value.Null(), err
		}
		out, err := item.Invoke(ctx)
		if err != nil {
			return value.Null(), err
		}
		ctx = ctx.WithValue(out)
	}
	return ctx.Value(), nil
}

// Evaluate runs p against input.
func Evaluate(ctx context.Context, p Pipeline, input value.Value, lookup Lookup) (value.Value, error) {
	return p.Run(NewCtx(ctx, input, lookup))
}
