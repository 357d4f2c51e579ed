package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests use sh")
	}
}

func TestRunner_PassesArgsThroughEnv(t *testing.T) {
	requireShell(t)
	r := NewRunner()
	tool := Tool{Name: "echo", Command: "sh", Args: []string{"-c", `printf '%s' "$FABLE_ARG_MSG"`}}

	out, err := r.Run(context.Background(), tool, map[string]domain.Value{"msg": domain.Str("$(whoami); --help")})
	require.NoError(t, err)
	assert.Equal(t, "$(whoami); --help", out.String())
}

func TestRunner_DecodesJSON(t *testing.T) {
	requireShell(t)
	r := NewRunner()
	tool := Tool{Name: "stats", Command: "sh", Args: []string{"-c", `echo '{"hp": 7, "tags": ["a"]}'`}}

	out, err := r.Run(context.Background(), tool, nil)
	require.NoError(t, err)
	hp, ok := out.Get("hp")
	require.True(t, ok)
	assert.True(t, hp.Equal(domain.Num(7)))
}

func TestRunner_Failures(t *testing.T) {
	requireShell(t)
	r := NewRunner()

	_, err := r.Run(context.Background(), Tool{Name: "fail", Command: "sh", Args: []string{"-c", "echo broken >&2; exit 3"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	slow := Tool{Name: "slow", Command: "sh", Args: []string{"-c", "sleep 5"}, Timeout: 50 * time.Millisecond}
	start := time.Now()
	_, err = r.Run(context.Background(), slow, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunner_TimeoutReachesChildren(t *testing.T) {
	requireShell(t)
	r := NewRunner()

	// The trailing echo keeps sh alive as the parent of sleep, which holds
	// the stdout pipe open.
	slow := Tool{Name: "nested", Command: "sh", Args: []string{"-c", "sleep 5; echo done"}, Timeout: 50 * time.Millisecond}
	start := time.Now()
	_, err := r.Run(context.Background(), slow, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRegister_ValidatesParams(t *testing.T) {
	requireShell(t)
	reg := registry.New()
	tools := []Tool{{
		Name:    "roll",
		Command: "sh",
		Args:    []string{"-c", `echo "$FABLE_ARG_SIDES"`},
		Params:  map[string]string{"sides": "int"},
	}}
	require.NoError(t, NewRunner().Register(reg, tools))

	out, err := reg.Call(context.Background(), "roll", map[string]domain.Value{"sides": domain.Num(6)})
	require.NoError(t, err)
	assert.Equal(t, "6", out.String())

	_, err = reg.Call(context.Background(), "roll", map[string]domain.Value{"sides": domain.Str("six")})
	assert.Error(t, err)
}

func TestLoadTools(t *testing.T) {
	dir := t.TempDir()

	tools, err := LoadTools(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, tools)

	path := filepath.Join(dir, "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tools:
  - name: weather
    command: ./weather.sh
    params:
      city: string
    timeout: 2s
  - name: incomplete
`), 0o644))

	tools, err = LoadTools(path)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "weather", tools[0].Name)
	assert.Equal(t, "string", tools[0].Params["city"])
	assert.Equal(t, 2*time.Second, tools[0].Timeout)

	require.NoError(t, os.WriteFile(path, []byte("tools: ["), 0o644))
	_, err = LoadTools(path)
	assert.Error(t, err)
}
