package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/value"
)

func upper() pipeline.Pipeline {
	item := pipeline.NewItem([]string{"upper"}, pipeline.CallFunc(func(args pipeline.Arguments, ctx pipeline.Ctx) (value.Value, error) {
		s, err := pipeline.Subject(ctx, "upper", value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}
		return value.String(strings.ToUpper(s)), nil
	}))
	return pipeline.New(item.Bind(pipeline.NewArguments()))
}

func field(name string) pipeline.Pipeline {
	item := pipeline.NewItem([]string{"field"}, pipeline.CallFunc(func(args pipeline.Arguments, ctx pipeline.Ctx) (value.Value, error) {
		v, _ := ctx.Value().Field(name)
		return v, nil
	}))
	return pipeline.New(item.Bind(pipeline.NewArguments()))
}

func userModel() *Model {
	m := NewModel([]string{"app", "user"})
	email := NewField("email", FieldTypeString)
	email.Required = true
	email.OnSet = upper()
	role := NewField("role", FieldTypeString)
	def := value.String("member")
	role.Default = &def
	role.Constraints = []Constraint{{Type: ConstraintOneOf, Value: value.Strings([]string{"member", "admin"})}}
	secret := NewField("secret", FieldTypeString)
	secret.Internal = true
	m.Fields = []*Field{email, role, secret}
	m.Properties = []*Property{
		{Name: "handle", Getter: field("email"), Cached: true},
		{Name: "label", Getter: field("role")},
	}
	return m
}

func TestNewModel(t *testing.T) {
	m := NewModel([]string{"app", "user"})
	if m.Name != "user" || m.Table != "user" || m.FullName() != "app.user" {
		t.Errorf("NewModel() = %+v", m)
	}
}

func TestModel_ApplyOnSet(t *testing.T) {
	m := userModel()
	in := value.Dictionary(
		value.Entry{Key: "email", Value: value.String("a@b.c")},
		value.Entry{Key: "secret", Value: value.String("s")},
	)
	out, err := m.ApplyOnSet(context.Background(), nil, in)
	if err != nil {
		t.Fatalf("ApplyOnSet() error = %v", err)
	}
	if v, _ := out.Field("email"); !v.Equal(value.String("A@B.C")) {
		t.Errorf("email = %v", v)
	}
	if v, _ := out.Field("role"); !v.Equal(value.String("member")) {
		t.Errorf("role default = %v", v)
	}
	if v, _ := out.Field("handle"); !v.Equal(value.String("A@B.C")) {
		t.Errorf("cached property = %v", v)
	}
	if _, ok := out.Field("label"); ok {
		t.Error("non-cached property must not be stored")
	}
}

func TestModel_ApplyOnSet_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   value.Value
		want string
	}{
		{"not a dictionary", value.String("x"), "user: wrong type: expected dictionary, got string"},
		{"unknown field", value.Dictionary(value.Entry{Key: "nope", Value: value.Int(1)}), "user.nope: field is not defined"},
		{"missing required", value.Dictionary(), "user.email: required field is missing"},
		{"constraint", value.Dictionary(
			value.Entry{Key: "email", Value: value.String("x")},
			value.Entry{Key: "role", Value: value.String("root")},
		), `user: role: must be one of: "member", "admin"`},
		{"wrong field type", value.Dictionary(
			value.Entry{Key: "email", Value: value.String("x")},
			value.Entry{Key: "secret", Value: value.Int(1)},
		), "user.secret: wrong type: expected string, got int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := userModel().ApplyOnSet(context.Background(), nil, tt.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestModel_ApplyOnSet_PipelineError(t *testing.T) {
	m := userModel()
	_, err := m.ApplyOnSet(context.Background(), nil, value.Dictionary(value.Entry{Key: "email", Value: value.Int(3)}))
	if !errors.Is(err, failure.ErrCoercion) {
		t.Fatalf("expected coercion error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "user.email: upper: ") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestModel_Output(t *testing.T) {
	m := userModel()
	m.Fields[1].OnOutput = upper()
	stored := value.Dictionary(
		value.Entry{Key: "email", Value: value.String("A@B.C")},
		value.Entry{Key: "role", Value: value.String("admin")},
		value.Entry{Key: "secret", Value: value.String("s")},
		value.Entry{Key: "handle", Value: value.String("h")},
	)
	out, err := m.Output(context.Background(), nil, stored)
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	if _, ok := out.Field("secret"); ok {
		t.Error("internal field must be dropped")
	}
	if v, _ := out.Field("role"); !v.Equal(value.String("ADMIN")) {
		t.Errorf("role = %v", v)
	}
	if v, _ := out.Field("handle"); !v.Equal(value.String("h")) {
		t.Errorf("cached property = %v", v)
	}
	if v, _ := out.Field("label"); !v.Equal(value.String("admin")) {
		t.Errorf("computed property = %v", v)
	}
}

func TestFieldType_Accepts(t *testing.T) {
	tests := []struct {
		t    FieldType
		k    value.Kind
		want bool
	}{
		{FieldTypeString, value.KindString, true},
		{FieldTypeString, value.KindInt, false},
		{FieldTypeFloat, value.KindInt, true},
		{FieldTypeInt, value.KindFloat, false},
		{FieldTypeBool, value.KindNull, true},
		{FieldTypeAny, value.KindDictionary, true},
	}
	for _, tt := range tests {
		if got := tt.t.Accepts(tt.k); got != tt.want {
			t.Errorf("%s.Accepts(%s) = %v, want %v", tt.t, tt.k, got, tt.want)
		}
	}
	if FieldType("uuid").Valid() {
		t.Error("uuid should not be a valid field type")
	}
}

func TestEnum(t *testing.T) {
	e := NewEnum([]string{"app", "role"})
	e.Members = []*Member{{Name: "admin", Value: "ADMIN"}, {Name: "member", Value: "member"}}
	if e.FullName() != "app.role" {
		t.Errorf("FullName() = %q", e.FullName())
	}
	if m, ok := e.Member("admin"); !ok || m.Value != "ADMIN" {
		t.Errorf("Member(admin) = %v, %v", m, ok)
	}
	if got := e.Values(); len(got) != 2 || got[0] != "ADMIN" {
		t.Errorf("Values() = %v", got)
	}
}
