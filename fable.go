package fable

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aretw0/fable/internal/runtime"
	"github.com/aretw0/fable/pkg/adapters/fsloader"
	loamAdapter "github.com/aretw0/fable/pkg/adapters/loam"
	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/cartridge"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/aretw0/fable/pkg/registry"
	"github.com/aretw0/fable/pkg/tree"
	"github.com/aretw0/loam"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Engine is the high-level entry point for the Fable library.
// It owns the loaded cartridge and the runtime; sessions stay with the caller.
type Engine struct {
	runtime     *runtime.Engine
	loader      ports.CartridgeLoader
	cart        atomic.Pointer[domain.Cartridge]
	opts        domain.Options
	runtimeOpts []runtime.Option
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	Name        string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLoader injects a custom CartridgeLoader, bypassing source detection.
func WithLoader(l ports.CartridgeLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithCartridge serves an already compiled cartridge.
func WithCartridge(c *domain.Cartridge) Option {
	return func(e *Engine) {
		e.loader = memory.NewLoader(c)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithOptions sets the defaults used by Advance.
func WithOptions(opts domain.Options) Option {
	return func(e *Engine) {
		e.opts = opts
	}
}

// WithProvider sets the generation and fetch backend.
func WithProvider(p ports.ServiceProvider) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithProvider(p))
	}
}

// WithEvaluator replaces the Starlark script evaluator.
func WithEvaluator(ev ports.Evaluator) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithEvaluator(ev))
	}
}

// WithFunctions lets story scripts call the host functions in reg.
func WithFunctions(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithFunctions(reg))
	}
}

// WithExtractor replaces the input field extractor.
func WithExtractor(x ports.Extractor) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithExtractor(x))
	}
}

// WithTracer sets the OpenTelemetry tracer for turns and collaborator calls.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithTracer(t))
	}
}

// WithClock overrides the wall clock stamped on sessions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithClock(now))
	}
}

// New initializes a Fable engine and loads its story.
// source is a directory of story documents (read through Loam) or a single
// cartridge file. With WithLoader or WithCartridge, source is only a label.
func New(source string, opts ...Option) (*Engine, error) {
	eng := &Engine{opts: domain.DefaultOptions()}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if source == "" {
			return nil, fmt.Errorf("source is required when no custom loader is provided")
		}
		loader, name, err := open(source)
		if err != nil {
			return nil, err
		}
		eng.loader = loader
		eng.Name = name
	} else if source != "" {
		eng.Name = filepath.Base(source)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("story", eng.Name)
	}

	runtimeOpts := []runtime.Option{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)
	eng.runtime = runtime.NewEngine(runtimeOpts...)

	if err := eng.Reload(context.Background()); err != nil {
		return nil, err
	}
	return eng, nil
}

func open(source string) (ports.CartridgeLoader, string, error) {
	absPath, err := filepath.Abs(source)
	if err != nil {
		return nil, "", fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, "", fmt.Errorf("invalid source: %w", err)
	}

	if !info.IsDir() {
		name := strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
		return fsloader.New(absPath), name, nil
	}

	// Strict mode keeps numbers as json.Number across Markdown and YAML.
	// Read-only keeps Loam from creating its dev sandbox.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to initialize loam: %w", err)
	}
	name := filepath.Base(absPath)
	loader := loamAdapter.New(loam.NewTypedRepository[loamAdapter.ChapterMetadata](repo))
	loader.Name = name
	return loader, name, nil
}

// Reload fetches the cartridge from the loader and validates it. The
// previous cartridge stays active when the new one is invalid.
func (e *Engine) Reload(ctx context.Context) error {
	c, err := e.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cartridge: %w", err)
	}
	if err := cartridge.Validate(c); err != nil {
		return err
	}
	if c.Name == "" {
		c.Name = e.Name
	}
	e.cart.Store(c)
	e.logger.DebugContext(ctx, "cartridge loaded", "nodes", tree.NewIndex(c.Root).Len())
	return nil
}

// NewSession creates a fresh session. An empty id gets a random UUID.
func (e *Engine) NewSession(id string) *domain.Session {
	if id == "" {
		id = uuid.NewString()
	}
	return domain.NewSession(id)
}

// Advance runs the story for session until the next seam with the engine
// defaults. An empty input means no player input accompanies the call.
func (e *Engine) Advance(ctx context.Context, session *domain.Session, input string) *domain.Result {
	var in *string
	if input != "" {
		in = &input
	}
	return e.AdvanceWith(ctx, session, e.opts, in)
}

// AdvanceWith runs one advance call with explicit options. The seed
// defaults to the session ID so every playthrough has its own stream.
func (e *Engine) AdvanceWith(ctx context.Context, session *domain.Session, opts domain.Options, input *string) *domain.Result {
	if opts.Seed == "" && session != nil {
		opts.Seed = session.ID
	}
	return e.runtime.Advance(ctx, e.cart.Load(), session, opts, input)
}

// Revert restores session to checkpoint index (negative counts from the end).
func (e *Engine) Revert(session *domain.Session, index int) error {
	return e.runtime.Revert(session, index)
}

// Cartridge returns the active story.
func (e *Engine) Cartridge() *domain.Cartridge {
	return e.cart.Load()
}

// Options returns the defaults used by Advance.
func (e *Engine) Options() domain.Options {
	return e.opts
}

// Tags lists the node tags the engine has handlers for.
func (e *Engine) Tags() []string {
	return e.runtime.Registry().Tags()
}

// Inspect returns every node of the active story in document order.
func (e *Engine) Inspect() []*domain.Node {
	return e.runtime.Index(e.cart.Load().Root).Nodes()
}

// Watch returns a channel that signals when the underlying story changes.
// Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan struct{}, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Loader returns the underlying CartridgeLoader used by the engine.
func (e *Engine) Loader() ports.CartridgeLoader {
	return e.loader
}

var _ ports.Advancer = (*Engine)(nil)
