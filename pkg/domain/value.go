package domain

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// Value is the variant stored in session state, frames and caches.
// The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	arr  []Value
	obj  map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Str wraps a string.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Num wraps a number.
func Num(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List wraps an ordered sequence of values.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, arr: items}
}

// Object wraps a string-keyed map of values.
func Object(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindObject, obj: m}
}

// FromAny converts a native Go value (as produced by encoding/json or yaml.v3)
// into a Value. Unknown types are stringified.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return Str(t)
	case bool:
		return Bool(t)
	case float64:
		return Num(t)
	case float32:
		return Num(float64(t))
	case int:
		return Num(float64(t))
	case int8:
		return Num(float64(t))
	case int16:
		return Num(float64(t))
	case int32:
		return Num(float64(t))
	case int64:
		return Num(float64(t))
	case uint:
		return Num(float64(t))
	case uint8:
		return Num(float64(t))
	case uint16:
		return Num(float64(t))
	case uint32:
		return Num(float64(t))
	case uint64:
		return Num(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Str(t.String())
		}
		return Num(f)
	case []Value:
		return List(t...)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return List(items...)
	case []string:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = Str(item)
		}
		return List(items...)
	case map[string]Value:
		return Object(t)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = FromAny(item)
		}
		return Object(m)
	case map[string]string:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = Str(item)
		}
		return Object(m)
	case map[any]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[FromAny(k).String()] = FromAny(item)
		}
		return Object(m)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return Null()
		}
		var decoded any
		if err := json.Unmarshal(b, &decoded); err != nil {
			return Null()
		}
		return FromAny(decoded)
	}
}

// Kind reports the dynamic type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Any converts v back into plain Go values.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Any()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Any()
		}
		return out
	default:
		return nil
	}
}

// String renders v as text. Null renders as the empty string and
// composite values render as JSON.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return FormatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindArray, KindObject:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return ""
	}
}

// FormatNumber prints integral numbers without a fractional part.
func FormatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Float coerces v to a number.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Truthy follows the usual scripting rules: null, false, 0, "" and the
// string "false" are false; collections are true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindString:
		s := strings.TrimSpace(v.str)
		return s != "" && !strings.EqualFold(s, "false")
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindBool:
		return v.b
	case KindArray, KindObject:
		return true
	default:
		return false
	}
}

// Items returns the elements of an array value.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Fields returns the entries of an object value.
func (v Value) Fields() map[string]Value {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

// Keys returns the sorted keys of an object value.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get resolves a dotted path ("a.b.0.c") inside v.
func (v Value) Get(path string) (Value, bool) {
	if path == "" {
		return v, true
	}
	cur := v
	for _, part := range strings.Split(path, ".") {
		switch cur.kind {
		case KindObject:
			next, ok := cur.obj[part]
			if !ok {
				return Null(), false
			}
			cur = next
		case KindArray:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(cur.arr) {
				return Null(), false
			}
			cur = cur.arr[i]
		default:
			return Null(), false
		}
	}
	return cur, true
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		items := make([]Value, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Clone()
		}
		return Value{kind: KindArray, arr: items}
	case KindObject:
		return Value{kind: KindObject, obj: CloneValues(v.obj)}
	default:
		return v
	}
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, item := range v.obj {
			other, ok := o.obj[k]
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		return json.Marshal(v.obj)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// Coerce converts raw text into a Value of the declared type.
// Unknown types and failed conversions keep the text as a string.
func Coerce(raw, typ string) Value {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "number", "int", "integer", "float":
		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return Num(f)
		}
	case "boolean", "bool":
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "yes", "1", "on":
			return Bool(true)
		case "false", "no", "0", "off", "":
			return Bool(false)
		}
	case "json", "object", "array":
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
			return FromAny(decoded)
		}
	case "null":
		return Null()
	case "", "auto":
		return Infer(raw)
	}
	return Str(raw)
}

var numericRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Infer guesses the type of untyped text: numbers and booleans are
// recognized, everything else stays a string.
func Infer(raw string) Value {
	s := strings.TrimSpace(raw)
	switch {
	case numericRe.MatchString(s):
		f, _ := strconv.ParseFloat(s, 64)
		return Num(f)
	case s == "true":
		return Bool(true)
	case s == "false":
		return Bool(false)
	}
	return Str(raw)
}

// CloneValues deep-copies a value map. A nil map stays nil.
func CloneValues(m map[string]Value) map[string]Value {
	if m == nil {
		return nil
	}
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// ValuesFromAny converts a plain map into a value map.
func ValuesFromAny(m map[string]any) map[string]Value {
	if m == nil {
		return nil
	}
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = FromAny(v)
	}
	return out
}
