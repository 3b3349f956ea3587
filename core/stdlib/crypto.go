package stdlib

import (
	"errors"

	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/namespace"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/value"
	"github.com/artpar/pipekit/ports"
)

func (l *Library) loadCryptoItems(std *namespace.Namespace) {
	// bcryptSalt hashes the subject. Without a cost argument the hasher's
	// default cost applies.
	std.DefinePipelineFunc("bcryptSalt", func(args pipeline.Arguments, ctx pipeline.Ctx) (value.Value, error) {
		input, err := pipeline.Subject(ctx, "bcryptSalt", value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}
		cost, err := pipeline.ResolveOptional(ctx, args, "bcryptSalt", "cost", 0, value.Value.AsUint)
		if err != nil {
			return value.Null(), err
		}
		if args.Has("cost") && cost == 0 {
			return value.Null(), failure.Argument(pipeline.ArgPrefix("bcryptSalt", "cost"), "cost is out of range")
		}
		hash, err := l.hasher.Hash(input, cost)
		if errors.Is(err, ports.ErrInvalidCost) {
			return value.Null(), failure.Argument(pipeline.ArgPrefix("bcryptSalt", "cost"), "cost is out of range")
		}
		if err != nil {
			return value.Null(), failure.Prefix("bcryptSalt", err)
		}
		return value.String(string(hash)), nil
	})

	// bcryptVerify passes the subject through when it matches the hash the
	// pipeline argument resolves to.
	std.DefinePipelineFunc("bcryptVerify", func(args pipeline.Arguments, ctx pipeline.Ctx) (value.Value, error) {
		input, err := pipeline.Subject(ctx, "bcryptVerify", value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}
		hash, err := pipeline.Resolve(ctx, args, "bcryptVerify", "pipeline", value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}
		err = l.hasher.Compare([]byte(hash), input)
		if errors.Is(err, ports.ErrHashMismatch) {
			return value.Null(), failure.Argument("bcryptVerify", "value does not match")
		}
		if err != nil {
			return value.Null(), failure.Prefix(pipeline.ArgPrefix("bcryptVerify", "pipeline"), err)
		}
		return ctx.Value(), nil
	})
}
