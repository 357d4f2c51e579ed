package script

import (
	"math"
	"sort"

	"github.com/aretw0/fable/pkg/domain"
	"go.starlark.net/starlark"
)

func toStarlark(v domain.Value) starlark.Value {
	switch v.Kind() {
	case domain.KindString:
		return starlark.String(v.String())
	case domain.KindBool:
		return starlark.Bool(v.Truthy())
	case domain.KindNumber:
		n, _ := v.Float()
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return starlark.MakeInt64(int64(n))
		}
		return starlark.Float(n)
	case domain.KindArray:
		items := v.Items()
		elems := make([]starlark.Value, len(items))
		for i, item := range items {
			elems[i] = toStarlark(item)
		}
		return starlark.NewList(elems)
	case domain.KindObject:
		fields := v.Fields()
		d := starlark.NewDict(len(fields))
		for _, k := range v.Keys() {
			_ = d.SetKey(starlark.String(k), toStarlark(fields[k]))
		}
		return d
	default:
		return starlark.None
	}
}

func fromStarlark(v starlark.Value) domain.Value {
	switch t := v.(type) {
	case nil, starlark.NoneType:
		return domain.Null()
	case starlark.Bool:
		return domain.Bool(bool(t))
	case starlark.Int:
		if i, ok := t.Int64(); ok {
			return domain.Num(float64(i))
		}
		return domain.Num(float64(t.Float()))
	case starlark.Float:
		return domain.Num(float64(t))
	case starlark.String:
		return domain.Str(string(t))
	case starlark.Bytes:
		return domain.Str(string(t))
	case *starlark.Dict:
		m := make(map[string]domain.Value, t.Len())
		for _, item := range t.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				key = item[0].String()
			}
			m[key] = fromStarlark(item[1])
		}
		return domain.Object(m)
	case starlark.Indexable:
		n := t.Len()
		items := make([]domain.Value, n)
		for i := 0; i < n; i++ {
			items[i] = fromStarlark(t.Index(i))
		}
		return domain.List(items...)
	case *starlark.Set:
		var items []domain.Value
		iter := t.Iterate()
		defer iter.Done()
		var x starlark.Value
		for iter.Next(&x) {
			items = append(items, fromStarlark(x))
		}
		return domain.List(items...)
	default:
		return domain.Str(v.String())
	}
}

func starlarkDict(m starlark.StringDict) *starlark.Dict {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := starlark.NewDict(len(m))
	for _, k := range keys {
		_ = d.SetKey(starlark.String(k), m[k])
	}
	return d
}
