package dsl

import (
	"testing"

	"github.com/aretw0/fable/pkg/cartridge"
	"github.com/aretw0/fable/pkg/domain"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New("simple")

	b.Var("name", "stranger")
	b.P("Hello, {{name}}!").From("Keeper")
	b.Input("What is your name?").SaveTo("name").Field("name", "string")
	b.P("Nice to meet you, {{name}}!")

	c := b.Cartridge()
	if c.Name != "simple" {
		t.Errorf("Expected name 'simple', got '%s'", c.Name)
	}
	if len(c.Root.Children) != 4 {
		t.Fatalf("Expected 4 children, got %d", len(c.Root.Children))
	}

	greet := c.Root.Children[1]
	if greet.Address != "0.1" {
		t.Errorf("Expected address '0.1', got '%s'", greet.Address)
	}
	if greet.AttrOr(domain.AttrFrom, "") != "Keeper" {
		t.Errorf("Expected speaker 'Keeper', got %+v", greet.Attributes)
	}

	ask := c.Root.Children[2]
	if ask.Type != domain.TagInput {
		t.Errorf("Expected input node, got '%s'", ask.Type)
	}
	if len(ask.Children) != 1 || ask.Children[0].Type != domain.TagField {
		t.Fatalf("Expected one field, got %+v", ask.Children)
	}
	if ask.Children[0].Address != "0.2.0" {
		t.Errorf("Expected field address '0.2.0', got '%s'", ask.Children[0].Address)
	}

	if err := cartridge.Validate(c); err != nil {
		t.Errorf("Expected valid cartridge, got %v", err)
	}
}

func TestBuilder_NestedFlow(t *testing.T) {
	b := New("nested")

	b.Var("n", "0")
	b.While("n < 2", func(w *Builder) {
		w.Code("n = n + 1")
	})
	b.If("n == 2", func(then *Builder) {
		then.Yield("#greet")
	}, func(otherwise *Builder) {
		otherwise.Jump("#bye")
	})
	b.Block("greet", func(blk *Builder) {
		blk.P("Hi.")
	})
	b.P("Bye.").ID("bye")

	c := b.Cartridge()
	if err := cartridge.Validate(c); err != nil {
		t.Fatalf("Expected valid cartridge, got %v", err)
	}

	cond := c.Root.Children[2]
	if len(cond.Children) != 2 {
		t.Fatalf("Expected then and else branches, got %d children", len(cond.Children))
	}
	if cond.Children[1].Type != domain.TagElse {
		t.Errorf("Expected else as last child, got '%s'", cond.Children[1].Type)
	}
	if cond.Children[1].Children[0].Address != "0.2.1.0" {
		t.Errorf("Unexpected else body address '%s'", cond.Children[1].Children[0].Address)
	}
}
