// Package middleware defines middleware definitions: named factories that
// wrap handler calls.
package middleware

import (
	"strings"

	"github.com/artpar/pipekit/core/handler"
	"github.com/artpar/pipekit/core/pipeline"
)

// Middleware wraps a handler call.
type Middleware func(next handler.Call) handler.Call

// Creator builds a middleware from its arguments.
type Creator func(args pipeline.Arguments) (Middleware, error)

// Definition is a named middleware creator.
type Definition struct {
	Path    []string
	Creator Creator
}

// FullName returns the dotted path.
func (d Definition) FullName() string { return strings.Join(d.Path, ".") }

// Chain applies mws to call so that mws[0] is the outermost.
func Chain(call handler.Call, mws ...Middleware) handler.Call {
	for i := len(mws) - 1; i >= 0; i-- {
		call = mws[i](call)
	}
	return call
}
