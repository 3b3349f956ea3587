package schema

import (
	"strings"

	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/value"
)

// Enum is a named set of members.
type Enum struct {
	Path        []string
	Name        string
	Description string
	Members     []*Member
}

// NewEnum creates an empty enum at path.
func NewEnum(path []string) *Enum {
	name := ""
	if len(path) > 0 {
		name = path[len(path)-1]
	}
	p := make([]string, len(path))
	copy(p, path)
	return &Enum{Path: p, Name: name}
}

// FullName returns the dotted path.
func (e *Enum) FullName() string { return strings.Join(e.Path, ".") }

// Member returns a member by name.
func (e *Enum) Member(name string) (*Member, bool) {
	for _, m := range e.Members {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Values returns member values in declaration order.
func (e *Enum) Values() []string {
	out := make([]string, len(e.Members))
	for i, m := range e.Members {
		out[i] = m.Value
	}
	return out
}

// Member is one enum member. Value defaults to Name.
type Member struct {
	Name        string
	Value       string
	Description string
}

// Function is an instance function of a struct.
type Function func(this value.Value, args pipeline.Arguments) (value.Value, error)

// StaticFunction is a struct-level function.
type StaticFunction func(args pipeline.Arguments) (value.Value, error)

// Struct groups functions under a path.
type Struct struct {
	Path            []string
	Functions       map[string]Function
	StaticFunctions map[string]StaticFunction
}

// NewStruct creates an empty struct at path.
func NewStruct(path []string) *Struct {
	p := make([]string, len(path))
	copy(p, path)
	return &Struct{
		Path:            p,
		Functions:       make(map[string]Function),
		StaticFunctions: make(map[string]StaticFunction),
	}
}

// DefineFunction registers an instance function, replacing any previous one.
func (s *Struct) DefineFunction(name string, fn Function) {
	s.Functions[name] = fn
}

// DefineStaticFunction registers a static function, replacing any previous one.
func (s *Struct) DefineStaticFunction(name string, fn StaticFunction) {
	s.StaticFunctions[name] = fn
}
