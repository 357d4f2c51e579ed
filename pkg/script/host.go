package script

import (
	"context"
	"fmt"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"go.starlark.net/starlark"
)

const ctxKey = "fable.ctx"

// builtins adds the registered host functions to the standard helpers.
func (e *Evaluator) builtins(env ports.ScriptEnv) starlark.StringDict {
	out := builtins(env)
	if e.funcs == nil {
		return out
	}
	for _, name := range e.funcs.Names() {
		if _, taken := out[name]; taken {
			continue
		}
		out[name] = starlark.NewBuiltin(name, e.host(name))
	}
	return out
}

func (e *Evaluator) host(name string) builtinFn {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("%s: arguments must be passed by keyword", b.Name())
		}
		ctx, _ := thread.Local(ctxKey).(context.Context)
		if ctx == nil {
			ctx = context.Background()
		}
		in := make(map[string]domain.Value, len(kwargs))
		for _, kv := range kwargs {
			key, _ := starlark.AsString(kv[0])
			in[key] = fromStarlark(kv[1])
		}
		out, err := e.funcs.Call(ctx, name, in)
		if err != nil {
			e.logger.Debug("host function failed", "name", name, "err", err)
			return nil, err
		}
		return toStarlark(out), nil
	}
}
