package schema

import (
	"testing"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	cases := []struct {
		in   string
		name string
	}{
		{"string", "string"},
		{"float", "number"},
		{"integer", "int"},
		{"boolean", "bool"},
		{"[int]", "[int]"},
		{"[[string]]", "[[string]]"},
		{"object?", "object?"},
		{"", "any"},
	}
	for _, tc := range cases {
		typ, err := ParseType(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.name, typ.Name())
	}

	_, err := ParseType("date")
	assert.Error(t, err)
	_, err = ParseType("[date]")
	assert.Error(t, err)
}

func TestTypes_Validate(t *testing.T) {
	assert.NoError(t, Int().Validate(domain.Num(3)))
	assert.Error(t, Int().Validate(domain.Num(3.5)))
	assert.Error(t, Int().Validate(domain.Str("3")))
	assert.NoError(t, Number().Validate(domain.Num(3.5)))
	assert.NoError(t, String().Validate(domain.Str("x")))
	assert.Error(t, Bool().Validate(domain.Str("true")))
	assert.NoError(t, Any().Validate(domain.Null()))

	list := List(Int())
	assert.NoError(t, list.Validate(domain.List(domain.Num(1), domain.Num(2))))
	err := list.Validate(domain.List(domain.Num(1), domain.Str("two")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 1")

	even := Custom("even", func(v domain.Value) error {
		n, _ := v.Float()
		if int(n)%2 != 0 {
			return assert.AnError
		}
		return nil
	})
	assert.NoError(t, even.Validate(domain.Num(4)))
	assert.Error(t, even.Validate(domain.Num(5)))
}

func TestValidate(t *testing.T) {
	s, err := ParseTypeMap(map[string]string{
		"name":  "string",
		"score": "int",
		"note":  "string?",
	})
	require.NoError(t, err)

	assert.NoError(t, Validate(s, map[string]domain.Value{
		"name":  domain.Str("Ada"),
		"score": domain.Num(10),
		"extra": domain.Bool(true),
	}))

	err = Validate(s, map[string]domain.Value{
		"score": domain.Str("ten"),
		"note":  domain.Num(1),
	})
	require.Error(t, err)
	errs := ValidationErrors(err)
	require.Len(t, errs, 3)
	assert.Equal(t, `field "name": required`, errs[0].Error())
	assert.Contains(t, errs[1].Error(), `field "note"`)
	assert.Contains(t, errs[2].Error(), `field "score"`)
	assert.Contains(t, err.Error(), "3 validation errors")
}

func TestParseTypeMap_Invalid(t *testing.T) {
	_, err := ParseTypeMap(map[string]string{"when": "date"})
	assert.ErrorContains(t, err, "field when")
}
