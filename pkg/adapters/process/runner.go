// Package process runs allow-listed local commands as host functions.
//
// Arguments never reach the command line: each one is passed as a
// FABLE_ARG_<NAME> environment variable, so player text cannot inject
// flags. Standard output becomes the return value, decoded as JSON when it
// looks like JSON.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/registry"
)

// DefaultTimeout bounds a tool without its own timeout.
const DefaultTimeout = 10 * time.Second

// waitDelay bounds how long Run waits for output pipes after the process
// was killed.
const waitDelay = 500 * time.Millisecond

// Runner executes tools.
type Runner struct {
	baseDir string
	timeout time.Duration
	logger  *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) { r.baseDir = dir }
}

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		timeout: DefaultTimeout,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds every tool to reg as a host function.
func (r *Runner) Register(reg *registry.Registry, tools []Tool) error {
	for _, tool := range tools {
		err := reg.RegisterTyped(tool.Name, tool.Params, func(ctx context.Context, args map[string]domain.Value) (domain.Value, error) {
			return r.Run(ctx, tool, args)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Run executes tool once with args.
func (r *Runner) Run(ctx context.Context, tool Tool, args map[string]domain.Value) (domain.Value, error) {
	timeout := tool.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, tool.Command, tool.Args...)
	cmd.Dir = r.baseDir
	cmd.WaitDelay = waitDelay
	isolate(cmd)
	cmd.Env = cmd.Environ()
	for k, v := range tool.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	for k, v := range args {
		cmd.Env = append(cmd.Env, fmt.Sprintf("FABLE_ARG_%s=%s", strings.ToUpper(k), envValue(v)))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.logger.DebugContext(ctx, "tool executed", "tool", tool.Name, "duration", time.Since(start), "err", err)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Null(), fmt.Errorf("tool %s: %w", tool.Name, ctx.Err())
		}
		return domain.Null(), fmt.Errorf("tool %s failed: %v: %s", tool.Name, err, strings.TrimSpace(stderr.String()))
	}
	return decodeOutput(stdout.String()), nil
}

// envValue renders scalars as text and composite values as JSON.
func envValue(v domain.Value) string {
	switch v.Kind() {
	case domain.KindArray, domain.KindObject:
		data, err := json.Marshal(v)
		if err == nil {
			return string(data)
		}
	case domain.KindNull:
		return ""
	}
	return v.String()
}

func decodeOutput(out string) domain.Value {
	trimmed := strings.TrimSpace(out)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var v domain.Value
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return domain.Str(trimmed)
}
