// Package script evaluates author expressions and statements with Starlark.
//
// Session variables are visible as globals. Statements may reassign them
// (n = n + 1) or call set(); every changed global is written back through the
// scope. Execution is bounded by a step budget and by the caller's context.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/aretw0/fable/pkg/registry"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// DefaultMaxSteps bounds a single evaluation.
const DefaultMaxSteps = 100_000

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Evaluator implements ports.Evaluator on top of Starlark.
type Evaluator struct {
	maxSteps uint64
	logger   *slog.Logger
	funcs    *registry.Registry
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxSteps sets the per-call execution step budget.
func WithMaxSteps(n uint64) Option {
	return func(e *Evaluator) {
		e.maxSteps = n
	}
}

// WithLogger routes print() output and failures to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithFunctions exposes the host functions of reg to scripts. Built-in
// helpers and story variables take precedence over a function of the same
// name.
func WithFunctions(reg *registry.Registry) Option {
	return func(e *Evaluator) {
		e.funcs = reg
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		maxSteps: DefaultMaxSteps,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ ports.Evaluator = (*Evaluator)(nil)

// Evaluate computes a single expression.
func (e *Evaluator) Evaluate(ctx context.Context, expr string, env ports.ScriptEnv) (domain.Value, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return domain.Null(), nil
	}

	thread, stop := e.thread(ctx)
	defer stop()

	predeclared := e.builtins(env)
	for name, v := range visible(env.Scope) {
		if _, taken := predeclared[name]; !taken {
			predeclared[name] = toStarlark(v)
		}
	}

	out, err := starlark.EvalOptions(fileOptions, thread, "expr", expr, predeclared)
	if err != nil {
		return domain.Null(), fmt.Errorf("evaluate %q: %w", expr, err)
	}
	return fromStarlark(out), nil
}

// Exec runs statements and writes changed globals back to env.Scope.
func (e *Evaluator) Exec(ctx context.Context, code string, env ports.ScriptEnv) error {
	code = dedent(code)
	if strings.TrimSpace(code) == "" {
		return nil
	}

	thread, stop := e.thread(ctx)
	defer stop()

	predeclared := e.builtins(env)
	vars := visible(env.Scope)
	bound := make(starlark.StringDict, len(vars))
	names := make([]string, 0, len(vars))
	for name, v := range vars {
		if _, taken := predeclared[name]; taken {
			continue
		}
		bound[name] = toStarlark(v)
		names = append(names, name)
	}
	sort.Strings(names)

	// Rebind every variable as a module global so the code may both read
	// and reassign it.
	var prelude strings.Builder
	for _, name := range names {
		fmt.Fprintf(&prelude, "%s = %s[%q]\n", name, varsName, name)
	}
	predeclared[varsName] = starlarkDict(bound)

	globals, err := starlark.ExecFileOptions(fileOptions, thread, "code", prelude.String()+code, predeclared)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}

	for name, sv := range globals {
		if strings.HasPrefix(name, "_") {
			continue
		}
		if _, ok := sv.(starlark.Callable); ok {
			continue
		}
		v := fromStarlark(sv)
		if old, existed := vars[name]; existed && old.Equal(v) {
			continue
		}
		env.Scope.Set(name, v)
	}
	return nil
}

const varsName = "__fable_vars__"

func (e *Evaluator) thread(ctx context.Context) (*starlark.Thread, func()) {
	thread := &starlark.Thread{
		Name: "fable",
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.Debug("script print", "msg", msg)
		},
	}
	thread.SetMaxExecutionSteps(e.maxSteps)
	thread.SetLocal(ctxKey, ctx)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()
	return thread, func() { close(done) }
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var keywords = map[string]bool{
	"and": true, "break": true, "continue": true, "def": true, "elif": true,
	"else": true, "for": true, "if": true, "in": true, "lambda": true,
	"load": true, "not": true, "or": true, "pass": true, "return": true,
	"while": true, "None": true, "True": true, "False": true,
}

// visible returns the scope variables that are usable Starlark identifiers.
func visible(scope domain.Scope) map[string]domain.Value {
	out := map[string]domain.Value{}
	if scope == nil {
		return out
	}
	for name, v := range scope.Values() {
		if identRe.MatchString(name) && !keywords[name] && !strings.HasPrefix(name, "__") {
			out[name] = v
		}
	}
	return out
}

// dedent strips the common leading indentation of markup-embedded code.
func dedent(code string) string {
	lines := strings.Split(strings.ReplaceAll(code, "\r\n", "\n"), "\n")
	prefix := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if prefix < 0 || n < prefix {
			prefix = n
		}
	}
	if prefix <= 0 {
		return strings.Join(lines, "\n") + "\n"
	}
	for i, l := range lines {
		if len(l) >= prefix {
			lines[i] = l[prefix:]
		} else {
			lines[i] = strings.TrimLeft(l, " \t")
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
