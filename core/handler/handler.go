// Package handler defines handler groups: named request handlers collected
// under a namespace path and exposed by the HTTP adapter.
package handler

import (
	"context"
	"strings"

	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/value"
)

// Call handles one request payload.
type Call func(ctx context.Context, input value.Value) (value.Value, error)

// Handler is a single named handler.
type Handler struct {
	Path []string
	Call Call

	// Middlewares are applied outermost first.
	Middlewares []string
}

// Name returns the last path segment.
func (h *Handler) Name() string {
	if len(h.Path) == 0 {
		return ""
	}
	return h.Path[len(h.Path)-1]
}

// FullName returns the dotted path.
func (h *Handler) FullName() string { return strings.Join(h.Path, ".") }

// Group collects handlers under a path.
type Group struct {
	Path     []string
	Handlers []*Handler
}

// NewGroup creates an empty group at path.
func NewGroup(path []string) *Group {
	p := make([]string, len(path))
	copy(p, path)
	return &Group{Path: p}
}

// FullName returns the dotted path.
func (g *Group) FullName() string { return strings.Join(g.Path, ".") }

// DefineHandler adds a handler. A handler with the same name is replaced.
func (g *Group) DefineHandler(name string, call Call, middlewares ...string) *Handler {
	path := append(append([]string{}, g.Path...), name)
	h := &Handler{Path: path, Call: call, Middlewares: middlewares}
	for i, existing := range g.Handlers {
		if existing.Name() == name {
			g.Handlers[i] = h
			return h
		}
	}
	g.Handlers = append(g.Handlers, h)
	return h
}

// Handler returns a handler by name.
func (g *Group) Handler(name string) (*Handler, bool) {
	for _, h := range g.Handlers {
		if h.Name() == name {
			return h, true
		}
	}
	return nil, false
}

// FromPipeline returns a Call that evaluates p with the request payload as
// the subject.
func FromPipeline(p pipeline.Pipeline, lookup pipeline.Lookup) Call {
	return func(ctx context.Context, input value.Value) (value.Value, error) {
		return pipeline.Evaluate(ctx, p, input, lookup)
	}
}
