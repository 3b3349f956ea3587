package stdlib

import (
	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/namespace"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/schema"
	"github.com/artpar/pipekit/core/value"
)

func loadDecorators(std *namespace.Namespace) {
	loadModelDecorators(std)
	loadFieldDecorators(std)
	loadRelationDecorators(std)
	loadPropertyDecorators(std)
	loadEnumDecorators(std)
}

// stringArg reads a required literal string argument of decorator name.
func stringArg(args pipeline.Arguments, name, arg string) (string, error) {
	s, err := args.String(arg)
	if err != nil {
		return "", failure.Prefix(pipeline.ArgPrefix(name, arg), err)
	}
	return s, nil
}

func pipelineArg(args pipeline.Arguments, name, arg string) (pipeline.Pipeline, error) {
	p, err := args.Pipeline(arg)
	if err != nil {
		return pipeline.Pipeline{}, failure.Prefix(pipeline.ArgPrefix(name, arg), err)
	}
	return p, nil
}

func stringsArg(args pipeline.Arguments, name, arg string) ([]string, error) {
	s, err := args.Strings(arg)
	if err != nil {
		return nil, failure.Prefix(pipeline.ArgPrefix(name, arg), err)
	}
	return s, nil
}

func loadModelDecorators(std *namespace.Namespace) {
	std.DefineModelDecorator("map", func(args pipeline.Arguments, m *schema.Model) error {
		table, err := stringArg(args, "map", "tableName")
		if err != nil {
			return err
		}
		m.Table = table
		return nil
	})
	std.DefineModelDecorator("description", func(args pipeline.Arguments, m *schema.Model) error {
		text, err := stringArg(args, "description", "text")
		if err != nil {
			return err
		}
		m.Description = text
		return nil
	})
}

func loadFieldDecorators(std *namespace.Namespace) {
	flag := func(name string, set func(f *schema.Field)) {
		std.DefineModelFieldDecorator(name, func(args pipeline.Arguments, f *schema.Field) error {
			set(f)
			return nil
		})
	}
	flag("unique", func(f *schema.Field) { f.Unique = true })
	flag("index", func(f *schema.Field) { f.Index = true })
	flag("internal", func(f *schema.Field) { f.Internal = true })
	flag("required", func(f *schema.Field) { f.Required = true })

	std.DefineModelFieldDecorator("map", func(args pipeline.Arguments, f *schema.Field) error {
		column, err := stringArg(args, "map", "column")
		if err != nil {
			return err
		}
		f.Column = column
		return nil
	})
	std.DefineModelFieldDecorator("description", func(args pipeline.Arguments, f *schema.Field) error {
		text, err := stringArg(args, "description", "text")
		if err != nil {
			return err
		}
		f.Description = text
		return nil
	})
	std.DefineModelFieldDecorator("default", func(args pipeline.Arguments, f *schema.Field) error {
		v, err := args.Value("value")
		if err != nil {
			return failure.Prefix(pipeline.ArgPrefix("default", "value"), err)
		}
		f.Default = &v
		return nil
	})
	std.DefineModelFieldDecorator("onSet", func(args pipeline.Arguments, f *schema.Field) error {
		p, err := pipelineArg(args, "onSet", "pipeline")
		if err != nil {
			return err
		}
		f.OnSet = p
		return nil
	})
	std.DefineModelFieldDecorator("onOutput", func(args pipeline.Arguments, f *schema.Field) error {
		p, err := pipelineArg(args, "onOutput", "pipeline")
		if err != nil {
			return err
		}
		f.OnOutput = p
		return nil
	})
	std.DefineModelFieldDecorator("constraint", func(args pipeline.Arguments, f *schema.Field) error {
		kind, err := stringArg(args, "constraint", "type")
		if err != nil {
			return err
		}
		if !schema.ConstraintType(kind).Known() {
			return failure.Argument(pipeline.ArgPrefix("constraint", "type"), "unknown constraint "+kind)
		}
		c := schema.Constraint{Type: schema.ConstraintType(kind)}
		if args.Has("value") {
			if c.Value, err = args.Value("value"); err != nil {
				return failure.Prefix(pipeline.ArgPrefix("constraint", "value"), err)
			}
		}
		if args.Has("message") {
			if c.Message, err = stringArg(args, "constraint", "message"); err != nil {
				return err
			}
		}
		f.Constraints = append(f.Constraints, c)
		return nil
	})
}

func loadRelationDecorators(std *namespace.Namespace) {
	std.DefineModelRelationDecorator("relation", func(args pipeline.Arguments, r *schema.Relation) error {
		fields, err := stringsArg(args, "relation", "fields")
		if err != nil {
			return err
		}
		references, err := stringsArg(args, "relation", "references")
		if err != nil {
			return err
		}
		if len(fields) != len(references) {
			return failure.Argument("relation", "fields and references must have the same length")
		}
		r.Fields, r.References = fields, references
		return nil
	})
	std.DefineModelRelationDecorator("description", func(args pipeline.Arguments, r *schema.Relation) error {
		text, err := stringArg(args, "description", "text")
		if err != nil {
			return err
		}
		r.Description = text
		return nil
	})
}

func loadPropertyDecorators(std *namespace.Namespace) {
	std.DefineModelPropertyDecorator("getter", func(args pipeline.Arguments, p *schema.Property) error {
		getter, err := pipelineArg(args, "getter", "pipeline")
		if err != nil {
			return err
		}
		p.Getter = getter
		return nil
	})
	std.DefineModelPropertyDecorator("cached", func(args pipeline.Arguments, p *schema.Property) error {
		p.Cached = true
		return nil
	})
	std.DefineModelPropertyDecorator("description", func(args pipeline.Arguments, p *schema.Property) error {
		text, err := stringArg(args, "description", "text")
		if err != nil {
			return err
		}
		p.Description = text
		return nil
	})
}

func loadEnumDecorators(std *namespace.Namespace) {
	std.DefineEnumDecorator("description", func(args pipeline.Arguments, e *schema.Enum) error {
		text, err := stringArg(args, "description", "text")
		if err != nil {
			return err
		}
		e.Description = text
		return nil
	})
	std.DefineEnumMemberDecorator("map", func(args pipeline.Arguments, m *schema.Member) error {
		v, err := args.Value("value")
		if err != nil {
			return failure.Prefix(pipeline.ArgPrefix("map", "value"), err)
		}
		s, err := v.AsString()
		if err != nil {
			// Numeric member values are stored in their rendered form.
			if v.Kind() != value.KindInt {
				return failure.WrongType(pipeline.ArgPrefix("map", "value"), err)
			}
			s = v.String()
		}
		m.Value = s
		return nil
	})
	std.DefineEnumMemberDecorator("description", func(args pipeline.Arguments, m *schema.Member) error {
		text, err := stringArg(args, "description", "text")
		if err != nil {
			return err
		}
		m.Description = text
		return nil
	})
}
