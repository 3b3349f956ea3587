package pipeline

import (
	"context"

	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/value"
)

// Lookup resolves pipeline items by absolute path. Namespaces implement it.
type Lookup interface {
	PipelineItemAt(path []string) (Item, bool)
}

// Ctx is the evaluation context handed to every stage: the current subject
// value plus what is needed to evaluate nested pipelines. Ctx is a value;
// WithValue returns a new context and never changes the receiver.
type Ctx struct {
	ctx    context.Context
	value  value.Value
	lookup Lookup
}

// NewCtx creates an evaluation context. A nil ctx means context.Background.
func NewCtx(ctx context.Context, subject value.Value, lookup Lookup) Ctx {
	if ctx == nil {
		ctx = context.Background()
	}
	return Ctx{ctx: ctx, value: subject, lookup: lookup}
}

// Context returns the request context driving the evaluation.
func (c Ctx) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Value returns the current subject.
func (c Ctx) Value() value.Value { return c.value }

// Lookup returns the registry handle, which may be nil.
func (c Ctx) Lookup() Lookup { return c.lookup }

// WithValue returns a context whose subject is v.
func (c Ctx) WithValue(v value.Value) Ctx {
	c.value = v
	return c
}

// Run evaluates p starting from the current subject.
func (c Ctx) Run(p Pipeline) (value.Value, error) {
	return p.Run(c)
}

// ResolvePipeline turns an argument into a terminal value. Literals are
// returned as-is; nested pipelines run against this same context, so they see
// the enclosing subject. Failures are prefixed with prefix, normally
// "item(arg)".
func (c Ctx) ResolvePipeline(arg Argument, prefix string) (value.Value, error) {
	switch arg.kind {
	case ArgumentPipeline:
		out, err := arg.pipeline.Run(c)
		if err != nil {
			return value.Null(), failure.Prefix(prefix, err)
		}
		return out, nil
	case ArgumentChain:
		if c.lookup == nil {
			return value.Null(), failure.Argument(prefix, "nested chain cannot be bound without a namespace")
		}
		p, err := arg.chain.Bind(c.lookup)
		if err != nil {
			return value.Null(), failure.Prefix(prefix, err)
		}
		out, err := p.Run(c)
		if err != nil {
			return value.Null(), failure.Prefix(prefix, err)
		}
		return out, nil
	default:
		return arg.literal, nil
	}
}
