package stdlib

import (
	"context"
	"time"

	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/handler"
	"github.com/artpar/pipekit/core/middleware"
	"github.com/artpar/pipekit/core/namespace"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/value"
)

func loadMiddlewares(std *namespace.Namespace) {
	// timeout bounds the wrapped handler with a deadline. Pipelines observe
	// it between stages.
	std.DefineMiddleware("timeout", func(args pipeline.Arguments) (middleware.Middleware, error) {
		seconds, err := args.Float("seconds")
		if err != nil {
			return nil, failure.Prefix(pipeline.ArgPrefix("timeout", "seconds"), err)
		}
		if seconds <= 0 {
			return nil, failure.Argument(pipeline.ArgPrefix("timeout", "seconds"), "must be positive")
		}
		d := time.Duration(seconds * float64(time.Second))
		return func(next handler.Call) handler.Call {
			return func(ctx context.Context, input value.Value) (value.Value, error) {
				ctx, cancel := context.WithTimeout(ctx, d)
				defer cancel()
				return next(ctx, input)
			}
		}, nil
	})
}
