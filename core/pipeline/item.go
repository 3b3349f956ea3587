package pipeline

import (
	"strings"

	"github.com/artpar/pipekit/core/value"
)

// Call is the uniform calling convention every pipeline item implements.
// Implementations must not retain ctx beyond the call and must not assume
// exclusive access to shared state.
type Call interface {
	Call(args Arguments, ctx Ctx) (value.Value, error)
}

// CallFunc adapts a plain function to Call.
type CallFunc func(args Arguments, ctx Ctx) (value.Value, error)

// Call invokes f.
func (f CallFunc) Call(args Arguments, ctx Ctx) (value.Value, error) {
	return f(args, ctx)
}

// Item is a named, registered pipeline item. Items are values; copies share
// the underlying Call.
type Item struct {
	Path []string
	call Call
}

// NewItem creates an item at path.
func NewItem(path []string, call Call) Item {
	return Item{Path: clonePath(path), call: call}
}

// Name returns the last path segment.
func (i Item) Name() string {
	if len(i.Path) == 0 {
		return ""
	}
	return i.Path[len(i.Path)-1]
}

// FullName returns the dotted path.
func (i Item) FullName() string { return strings.Join(i.Path, ".") }

// Call runs the item with an explicit argument bag.
func (i Item) Call(args Arguments, ctx Ctx) (value.Value, error) {
	return i.call.Call(args, ctx)
}

// Bind partially applies the item, producing one pipeline stage.
func (i Item) Bind(args Arguments) BoundItem {
	return BoundItem{Path: clonePath(i.Path), Arguments: args, call: i.call}
}

// BoundItem is an item with its arguments fixed at declaration time.
// It serializes without the callable.
type BoundItem struct {
	Path      []string  `json:"path" yaml:"path"`
	Arguments Arguments `json:"arguments" yaml:"arguments"`
	call      Call
}

// Name returns the last path segment.
func (b BoundItem) Name() string {
	if len(b.Path) == 0 {
		return ""
	}
	return b.Path[len(b.Path)-1]
}

// Invoke runs the stage against ctx with the captured arguments.
func (b BoundItem) Invoke(ctx Ctx) (value.Value, error) {
	return b.call.Call(b.Arguments, ctx)
}

// Callee returns the callable the stage was bound to.
func (b BoundItem) Callee() Call { return b.call }

// Call runs the stage with a caller-supplied argument bag.
func (b BoundItem) Call(args Arguments, ctx Ctx) (value.Value, error) {
	return b.call.Call(args, ctx)
}

func clonePath(path []string) []string {
	out := make([]string, len(path))
	copy(out, path)
	return out
}
