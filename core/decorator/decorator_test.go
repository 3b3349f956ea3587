package decorator

import (
	"errors"
	"testing"

	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/value"
)

type column struct {
	Name   string
	Unique bool
}

func TestApply(t *testing.T) {
	rename := New([]string{"std", "map"}, func(args pipeline.Arguments, c *column) error {
		name, err := args.String("name")
		if err != nil {
			return failure.Prefix("map(name)", err)
		}
		c.Name = name
		return nil
	})

	c := column{Name: "email"}
	if err := rename.Apply(pipeline.NewArguments().WithValue("name", value.String("email_address")), &c); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if c.Name != "email_address" {
		t.Errorf("Name = %q", c.Name)
	}

	err := rename.Apply(pipeline.NewArguments(), &c)
	if !errors.Is(err, failure.ErrDefinition) {
		t.Fatalf("expected definition error, got %v", err)
	}
	if err.Error() != "@std.map: map(name): missing argument" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestApply_NilCall(t *testing.T) {
	d := Decorator[column]{Path: []string{"broken"}}
	if err := d.Apply(pipeline.NewArguments(), &column{}); err == nil {
		t.Error("expected error for decorator without implementation")
	}
}

func TestApplyAll(t *testing.T) {
	var order []string
	mk := func(name string, fail bool) Decorator[column] {
		return New([]string{name}, func(args pipeline.Arguments, c *column) error {
			order = append(order, name)
			if fail {
				return errors.New("rejected")
			}
			c.Unique = true
			return nil
		})
	}

	c := column{}
	err := ApplyAll(&c, []Application[column]{
		{Decorator: mk("first", false)},
		{Decorator: mk("second", true)},
		{Decorator: mk("third", false)},
	})
	if err == nil || err.Error() != "@second: rejected" {
		t.Fatalf("ApplyAll() error = %v", err)
	}
	if len(order) != 2 {
		t.Errorf("decorators after a failure must not run, ran %v", order)
	}
	if !c.Unique {
		t.Error("first decorator should have applied")
	}
}
