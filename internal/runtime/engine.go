// Package runtime executes story cartridges.
//
// An Engine walks the node tree of a cartridge on behalf of a session,
// dispatching each node to a Handler and collecting the host ops they emit
// until a seam is reached: input is needed, media must play, the dispatch
// budget is spent, an error occurred or the story finished.
//
// The engine itself is stateless across calls. Everything that must
// survive lives in the domain.Session passed to Advance.
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/aretw0/fable/pkg/provider"
	"github.com/aretw0/fable/pkg/registry"
	"github.com/aretw0/fable/pkg/script"
	"github.com/aretw0/fable/pkg/tree"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/fable/internal/runtime"

// Engine runs cartridges.
type Engine struct {
	registry  *Registry
	extra     []Handler
	evaluator ports.Evaluator
	extractor ports.Extractor
	provider  ports.ServiceProvider
	funcs     *registry.Registry
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu      sync.Mutex
	indexed *domain.Node
	index   *tree.Index
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry replaces the handler registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithHandlers adds handlers on top of the registry. They replace built-in
// handlers for the tags they share.
func WithHandlers(hs ...Handler) Option {
	return func(e *Engine) { e.extra = append(e.extra, hs...) }
}

// WithEvaluator sets the script evaluator.
func WithEvaluator(ev ports.Evaluator) Option {
	return func(e *Engine) { e.evaluator = ev }
}

// WithExtractor sets the input extractor.
func WithExtractor(x ports.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// WithProvider sets the generation and fetch collaborator.
func WithProvider(p ports.ServiceProvider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithFunctions exposes host functions to the default script evaluator.
func WithFunctions(reg *registry.Registry) Option {
	return func(e *Engine) { e.funcs = reg }
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = e.hooks.Merge(h) }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithClock overrides the wall clock stamped on sessions and events.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine. Without options it evaluates scripts with
// Starlark, extracts input with rules and has no generation backend.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}
	if len(e.extra) > 0 {
		e.registry = e.registry.Extend(e.extra...)
		e.extra = nil
	}
	if e.provider == nil {
		e.provider = provider.Null{}
	}
	if e.evaluator == nil {
		sopts := []script.Option{script.WithLogger(e.logger)}
		if e.funcs != nil {
			sopts = append(sopts, script.WithFunctions(e.funcs))
		}
		e.evaluator = script.New(sopts...)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	return e
}

// Registry returns the handler table the engine was built with.
func (e *Engine) Registry() *Registry { return e.registry }

// Index returns the address index for root, reusing the last one built.
func (e *Engine) Index(root *domain.Node) *tree.Index {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.indexed != root || e.index == nil {
		e.index = tree.NewIndex(root)
		e.indexed = root
	}
	return e.index
}

// Advance runs the cartridge for sess until the next seam. A nil input means
// the call carries no player input. The session is mutated in place and is
// also returned in the result.
func (e *Engine) Advance(ctx context.Context, cart *domain.Cartridge, sess *domain.Session, opts domain.Options, input *string) (res *domain.Result) {
	started := e.now()
	opts = opts.WithDefaults()
	res = &domain.Result{Session: sess, Ops: []domain.Op{}}

	if sess == nil || cart == nil || cart.Root == nil {
		res.Ops = append(res.Ops, domain.StoryError("missing session or cartridge"))
		res.Seam = domain.SeamError
		res.Info.Reason = "missing session or cartridge"
		return res
	}
	sess.Normalize()

	ctx, span := e.tracer.Start(ctx, "fable.advance", trace.WithAttributes(
		attribute.String("fable.session", sess.ID),
		attribute.String("fable.cartridge", cart.Name),
		attribute.Int("fable.turn", sess.Turn+1),
	))
	defer span.End()

	logger := e.logger.With("session_id", sess.ID)
	r := e.newRun(ctx, cart, sess, opts, logger)

	defer func() {
		if p := recover(); p != nil {
			logger.ErrorContext(ctx, "advance panicked", "panic", p, "address", sess.Address)
			r.ops = append(r.ops, domain.StoryError(fmt.Sprintf("internal error: %v", p)))
			r.seam = domain.SeamError
			r.reason = "panic"
			r.settle(res)
		}
		res.Info.Cost = r.meter.cost(e.now().Sub(started))
		span.SetAttributes(
			attribute.String("fable.seam", string(res.Seam)),
			attribute.Int("fable.dispatches", res.Info.Dispatches),
			attribute.Int("fable.ops", len(res.Ops)),
		)
		if res.Seam == domain.SeamError {
			span.SetStatus(codes.Error, res.Info.Reason)
		}
		e.emitSeam(ctx, sess, res)
		logger.DebugContext(ctx, "advance stopped", "seam", res.Seam, "address", res.Address, "dispatches", res.Info.Dispatches)
	}()

	r.start(input)
	r.loop()
	r.settle(res)
	return res
}

// Revert restores sess to a retained checkpoint.
func (e *Engine) Revert(sess *domain.Session, index int) error {
	if sess == nil {
		return domain.ErrSessionNotFound
	}
	return sess.Revert(index)
}

func (e *Engine) emitSeam(ctx context.Context, sess *domain.Session, res *domain.Result) {
	if e.hooks.OnSeam == nil {
		return
	}
	e.hooks.OnSeam(ctx, &domain.SeamEvent{
		HookBase: domain.HookBase{
			Timestamp: e.now(),
			Type:      domain.HookSeam,
			SessionID: sess.ID,
			Turn:      sess.Turn,
		},
		Seam:       res.Seam,
		Address:    res.Address,
		Ops:        len(res.Ops),
		Dispatches: res.Info.Dispatches,
		Reason:     res.Info.Reason,
	})
}
