package pipeline

import (
	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/value"
)

// ArgPrefix formats the "item(arg)" prefix used by argument errors.
func ArgPrefix(item, arg string) string {
	return item + "(" + arg + ")"
}

// Resolve fetches argument name from args, evaluates it against ctx when it
// is an embedded pipeline, and converts the result with into.
//
// Resolution finishes before Resolve returns, so an item that resolves its
// arguments first never runs its body before nested pipelines are done.
func Resolve[T any](ctx Ctx, args Arguments, item, name string, into func(value.Value) (T, error)) (T, error) {
	var zero T
	prefix := ArgPrefix(item, name)
	arg, ok := args.Get(name)
	if !ok {
		return zero, failure.MissingArgument(prefix)
	}
	return resolveArg(ctx, arg, prefix, into)
}

// ResolveOptional is Resolve with a fallback for absent arguments.
func ResolveOptional[T any](ctx Ctx, args Arguments, item, name string, fallback T, into func(value.Value) (T, error)) (T, error) {
	arg, ok := args.Get(name)
	if !ok {
		return fallback, nil
	}
	return resolveArg(ctx, arg, ArgPrefix(item, name), into)
}

func resolveArg[T any](ctx Ctx, arg Argument, prefix string, into func(value.Value) (T, error)) (T, error) {
	var zero T
	v, err := ctx.ResolvePipeline(arg, prefix)
	if err != nil {
		return zero, err
	}
	out, err := into(v)
	if err != nil {
		return zero, failure.WrongType(prefix, err)
	}
	return out, nil
}

// Subject converts the context's subject with into, reporting failures as
// coercion errors prefixed with the item name.
func Subject[T any](ctx Ctx, item string, into func(value.Value) (T, error)) (T, error) {
	out, err := into(ctx.Value())
	if err != nil {
		var zero T
		return zero, failure.Coercion(item, err)
	}
	return out, nil
}
