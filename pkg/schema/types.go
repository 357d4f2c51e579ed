package schema

import (
	"fmt"
	"math"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
)

// Type validates a single value.
type Type interface {
	// Name returns the type string that ParseType accepts.
	Name() string
	Validate(v domain.Value) error
}

type kindType struct {
	name string
	kind domain.Kind
}

func (t kindType) Name() string { return t.name }

func (t kindType) Validate(v domain.Value) error {
	if v.Kind() != t.kind {
		return fmt.Errorf("expected %s, got %s", t.name, v.Kind())
	}
	return nil
}

type intType struct{}

func (intType) Name() string { return "int" }

func (intType) Validate(v domain.Value) error {
	n, ok := v.Float()
	if !ok || v.Kind() != domain.KindNumber {
		return fmt.Errorf("expected int, got %s", v.Kind())
	}
	if n != math.Trunc(n) {
		return fmt.Errorf("expected int, got fraction %s", domain.FormatNumber(n))
	}
	return nil
}

type anyType struct{}

func (anyType) Name() string { return "any" }
func (anyType) Validate(domain.Value) error { return nil }

type listType struct{ elem Type }

func (t listType) Name() string { return "[" + t.elem.Name() + "]" }

func (t listType) Validate(v domain.Value) error {
	if v.Kind() != domain.KindArray {
		return fmt.Errorf("expected list, got %s", v.Kind())
	}
	for i, item := range v.Items() {
		if err := t.elem.Validate(item); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

type optionalType struct{ inner Type }

func (t optionalType) Name() string { return t.inner.Name() + "?" }

func (t optionalType) Validate(v domain.Value) error {
	if v.IsNull() {
		return nil
	}
	return t.inner.Validate(v)
}

type customType struct {
	name     string
	validate func(domain.Value) error
}

func (t customType) Name() string { return t.name }
func (t customType) Validate(v domain.Value) error { return t.validate(v) }

// String accepts strings.
func String() Type { return kindType{"string", domain.KindString} }

// Number accepts any number.
func Number() Type { return kindType{"number", domain.KindNumber} }

// Int accepts whole numbers.
func Int() Type { return intType{} }

// Bool accepts booleans.
func Bool() Type { return kindType{"bool", domain.KindBool} }

// Object accepts maps.
func Object() Type { return kindType{"object", domain.KindObject} }

// Any accepts every value.
func Any() Type { return anyType{} }

// List accepts lists whose elements are all elem.
func List(elem Type) Type { return listType{elem: elem} }

// Optional accepts null or inner. Optional fields may also be absent.
func Optional(inner Type) Type { return optionalType{inner: inner} }

// Custom wraps a validation function under name.
func Custom(name string, validate func(domain.Value) error) Type {
	return customType{name: name, validate: validate}
}

// ParseType converts a type string ("string", "int", "[number]",
// "bool?") into a Type.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "?") {
		inner, err := ParseType(strings.TrimSuffix(s, "?"))
		if err != nil {
			return nil, err
		}
		return Optional(inner), nil
	}
	if len(s) > 2 && s[0] == '[' && s[len(s)-1] == ']' {
		elem, err := ParseType(s[1 : len(s)-1])
		if err != nil {
			return nil, err
		}
		return List(elem), nil
	}
	switch s {
	case "string":
		return String(), nil
	case "number", "float":
		return Number(), nil
	case "int", "integer":
		return Int(), nil
	case "bool", "boolean":
		return Bool(), nil
	case "object":
		return Object(), nil
	case "any", "":
		return Any(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", s)
	}
}

// ParseTypeMap converts a map of names to type strings into a Schema.
func ParseTypeMap(types map[string]string) (Schema, error) {
	out := make(Schema, len(types))
	for name, s := range types {
		t, err := ParseType(s)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}
