package script

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"
)

type builtinFn = func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

// builtins returns the helper surface bound to env.
func builtins(env ports.ScriptEnv) starlark.StringDict {
	h := &helpers{env: env}
	fns := map[string]builtinFn{
		"get":      h.get,
		"set":      h.set,
		"random":   h.random,
		"randint":  h.randint,
		"pick":     h.pick,
		"shuffle":  h.shuffle,
		"dice":     h.dice,
		"clamp":    h.clamp,
		"sum":      h.sum,
		"avg":      h.avg,
		"round":    h.round,
		"floor":    h.unary(math.Floor),
		"ceil":     h.unary(math.Ceil),
		"join":     h.join,
		"split":    h.split,
		"upper":    h.strfn(strings.ToUpper),
		"lower":    h.strfn(strings.ToLower),
		"trim":     h.strfn(strings.TrimSpace),
		"contains": h.contains,
		"now":      h.now,
		"date":     h.date,
		"events":   h.events(""),
		"dialog":   h.events(domain.EventDialog),
	}

	out := make(starlark.StringDict, len(fns)+5)
	for name, fn := range fns {
		out[name] = starlark.NewBuiltin(name, fn)
	}
	out["math"] = starlarkmath.Module
	out["json"] = starlarkjson.Module
	out["true"] = starlark.True
	out["false"] = starlark.False
	out["null"] = starlark.None
	return out
}

type helpers struct {
	env ports.ScriptEnv
}

func (h *helpers) rand() (ports.Random, error) {
	if h.env.Random == nil {
		return nil, fmt.Errorf("no random source")
	}
	return h.env.Random, nil
}

func (h *helpers) get(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var def starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "key", &key, "default?", &def); err != nil {
		return nil, err
	}
	if h.env.Scope == nil {
		return def, nil
	}
	v, ok := h.env.Scope.Lookup(key)
	if !ok {
		return def, nil
	}
	return toStarlark(v), nil
}

func (h *helpers) set(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var value starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "key", &key, "value", &value); err != nil {
		return nil, err
	}
	if h.env.Scope == nil {
		return nil, fmt.Errorf("%s: no scope", b.Name())
	}
	h.env.Scope.Set(key, fromStarlark(value))
	return starlark.None, nil
}

func (h *helpers) random(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	r, err := h.rand()
	if err != nil {
		return nil, err
	}
	return starlark.Float(r.Next()), nil
}

func (h *helpers) randint(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var lo, hi int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "lo", &lo, "hi", &hi); err != nil {
		return nil, err
	}
	r, err := h.rand()
	if err != nil {
		return nil, err
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return starlark.MakeInt(lo + r.Intn(hi-lo+1)), nil
}

func (h *helpers) pick(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Indexable
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "seq", &seq); err != nil {
		return nil, err
	}
	if seq.Len() == 0 {
		return starlark.None, nil
	}
	r, err := h.rand()
	if err != nil {
		return nil, err
	}
	return seq.Index(r.Intn(seq.Len())), nil
}

func (h *helpers) shuffle(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Indexable
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "seq", &seq); err != nil {
		return nil, err
	}
	r, err := h.rand()
	if err != nil {
		return nil, err
	}
	elems := make([]starlark.Value, seq.Len())
	for i := range elems {
		elems[i] = seq.Index(i)
	}
	for i := len(elems) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		elems[i], elems[j] = elems[j], elems[i]
	}
	return starlark.NewList(elems), nil
}

func (h *helpers) dice(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var notation string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "notation", &notation); err != nil {
		return nil, err
	}
	r, err := h.rand()
	if err != nil {
		return nil, err
	}
	n, err := r.Roll(notation)
	if err != nil {
		return nil, err
	}
	return starlark.MakeInt(n), nil
}

func number(name string, v starlark.Value) (float64, error) {
	f, ok := starlark.AsFloat(v)
	if !ok {
		return 0, fmt.Errorf("%s: want number, got %s", name, v.Type())
	}
	return f, nil
}

func numberResult(f float64) starlark.Value {
	return toStarlark(domain.Num(f))
}

func (h *helpers) clamp(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x, lo, hi starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "x", &x, "lo", &lo, "hi", &hi); err != nil {
		return nil, err
	}
	fx, err := number(b.Name(), x)
	if err != nil {
		return nil, err
	}
	flo, err := number(b.Name(), lo)
	if err != nil {
		return nil, err
	}
	fhi, err := number(b.Name(), hi)
	if err != nil {
		return nil, err
	}
	return numberResult(math.Max(flo, math.Min(fhi, fx))), nil
}

func numbers(name string, seq starlark.Iterable) ([]float64, error) {
	iter := seq.Iterate()
	defer iter.Done()
	var out []float64
	var x starlark.Value
	for iter.Next(&x) {
		f, err := number(name, x)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (h *helpers) sum(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Iterable
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "seq", &seq); err != nil {
		return nil, err
	}
	fs, err := numbers(b.Name(), seq)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, f := range fs {
		total += f
	}
	return numberResult(total), nil
}

func (h *helpers) avg(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Iterable
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "seq", &seq); err != nil {
		return nil, err
	}
	fs, err := numbers(b.Name(), seq)
	if err != nil {
		return nil, err
	}
	if len(fs) == 0 {
		return starlark.MakeInt(0), nil
	}
	total := 0.0
	for _, f := range fs {
		total += f
	}
	return numberResult(total / float64(len(fs))), nil
}

func (h *helpers) round(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	digits := 0
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "x", &x, "digits?", &digits); err != nil {
		return nil, err
	}
	f, err := number(b.Name(), x)
	if err != nil {
		return nil, err
	}
	p := math.Pow(10, float64(digits))
	return numberResult(math.Round(f*p) / p), nil
}

func (h *helpers) unary(fn func(float64) float64) builtinFn {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var x starlark.Value
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "x", &x); err != nil {
			return nil, err
		}
		f, err := number(b.Name(), x)
		if err != nil {
			return nil, err
		}
		return numberResult(fn(f)), nil
	}
}

func (h *helpers) strfn(fn func(string) string) builtinFn {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var s starlark.Value
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "s", &s); err != nil {
			return nil, err
		}
		return starlark.String(fn(plain(s))), nil
	}
}

// plain renders strings without quotes and everything else with str().
func plain(v starlark.Value) string {
	if s, ok := starlark.AsString(v); ok {
		return s
	}
	return v.String()
}

func (h *helpers) join(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Iterable
	sep := ", "
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "seq", &seq, "sep?", &sep); err != nil {
		return nil, err
	}
	iter := seq.Iterate()
	defer iter.Done()
	var parts []string
	var x starlark.Value
	for iter.Next(&x) {
		parts = append(parts, plain(x))
	}
	return starlark.String(strings.Join(parts, sep)), nil
}

func (h *helpers) split(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	sep := ""
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "s", &s, "sep?", &sep); err != nil {
		return nil, err
	}
	var parts []string
	if sep == "" {
		parts = strings.Fields(s)
	} else {
		parts = strings.Split(s, sep)
	}
	elems := make([]starlark.Value, len(parts))
	for i, p := range parts {
		elems[i] = starlark.String(p)
	}
	return starlark.NewList(elems), nil
}

func (h *helpers) contains(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var hay, needle starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "hay", &hay, "needle", &needle); err != nil {
		return nil, err
	}
	if s, ok := starlark.AsString(hay); ok {
		return starlark.Bool(strings.Contains(strings.ToLower(s), strings.ToLower(plain(needle)))), nil
	}
	if seq, ok := hay.(starlark.Iterable); ok {
		iter := seq.Iterate()
		defer iter.Done()
		var x starlark.Value
		for iter.Next(&x) {
			if eq, err := starlark.Equal(x, needle); err == nil && eq {
				return starlark.True, nil
			}
		}
	}
	return starlark.False, nil
}

func (h *helpers) now(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return starlark.MakeInt64(h.env.Now), nil
}

func (h *helpers) date(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	layout := time.DateOnly
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "layout?", &layout); err != nil {
		return nil, err
	}
	return starlark.String(time.UnixMilli(h.env.Now).UTC().Format(layout)), nil
}

func (h *helpers) events(kind domain.EventKind) builtinFn {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		query := ""
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "query?", &query); err != nil {
			return nil, err
		}
		found, err := QueryEvents(h.env.Events, kind, query)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return toStarlark(domain.FromAny(found)), nil
	}
}
