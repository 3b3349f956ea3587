package stdlib

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/namespace"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/value"
)

// checkCache holds compiled check expressions.
type checkCache struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func newCheckCache() *checkCache {
	return &checkCache{programs: make(map[string]*vm.Program)}
}

func checkEnv(v value.Value) map[string]any {
	return map[string]any{"value": v.Interface()}
}

func (c *checkCache) program(expression string) (*vm.Program, error) {
	c.mu.RLock()
	program, ok := c.programs[expression]
	c.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.Env(checkEnv(value.Null())), expr.AsBool())
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.programs[expression] = program
	c.mu.Unlock()
	return program, nil
}

// loadCheckItem defines check(expr, message). The expression sees the
// subject as `value`; the subject passes through when it evaluates to true.
func (l *Library) loadCheckItem(std *namespace.Namespace) {
	std.DefinePipelineFunc("check", func(args pipeline.Arguments, ctx pipeline.Ctx) (value.Value, error) {
		expression, err := pipeline.Resolve(ctx, args, "check", "expr", value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}
		message, err := pipeline.ResolveOptional(ctx, args, "check", "message", "", value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}

		program, err := l.checks.program(expression)
		if err != nil {
			return value.Null(), failure.Prefix(pipeline.ArgPrefix("check", "expr"), err)
		}
		out, err := expr.Run(program, checkEnv(ctx.Value()))
		if err != nil {
			return value.Null(), failure.Prefix("check", err)
		}
		if ok, _ := out.(bool); !ok {
			if message == "" {
				message = "check failed: " + expression
			}
			return value.Null(), failure.Argument("check", message)
		}
		return ctx.Value(), nil
	})
}
