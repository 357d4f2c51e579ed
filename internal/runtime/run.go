package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/extract"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/aretw0/fable/pkg/prng"
	"github.com/aretw0/fable/pkg/provider"
	"github.com/aretw0/fable/pkg/render"
	"github.com/aretw0/fable/pkg/tree"
)

// hoisted tags at the top level of the tree run once before the first turn.
var hoisted = map[string]bool{
	domain.TagVar:    true,
	domain.TagCode:   true,
	domain.TagScript: true,
	domain.TagData:   true,
}

// run is the state of a single Advance call.
type run struct {
	e         *Engine
	ctx       context.Context
	cart      *domain.Cartridge
	ix        *tree.Index
	sess      *domain.Session
	opts      domain.Options
	logger    *slog.Logger
	rng       *prng.Source
	meter     *meter
	provider  ports.ServiceProvider
	extractor ports.Extractor
	scope     *sessionScope
	origin    *domain.Node

	ops        []domain.Op
	events     []domain.Event
	trace      []string
	dispatches int
	seam       domain.Seam
	reason     string
	checkpoint bool
}

func (e *Engine) newRun(ctx context.Context, cart *domain.Cartridge, sess *domain.Session, opts domain.Options, logger *slog.Logger) *run {
	r := &run{
		e:      e,
		ctx:    ctx,
		cart:   cart,
		ix:     e.Index(cart.Root),
		sess:   sess,
		opts:   opts,
		logger: logger,
		rng:    prng.New(opts.Seed, opts.Loop, sess.Cycle),
		scope:  &sessionScope{s: sess},
		ops:    []domain.Op{},
	}
	r.meter = newMeter(e.provider, e.tracer, e.hooks, sess, e.now)
	r.provider = provider.NewSafe(r.meter, logger)
	r.extractor = e.extractor
	if r.extractor == nil {
		r.extractor = extract.NewModel(r.provider, opts.Models...)
	}
	r.origin = r.ix.FindFirst(domain.TagOrigin)
	if r.origin == nil {
		r.origin = r.ix.Root()
	}
	return r
}

func (r *run) start(input *string) {
	s := r.sess
	s.Turn++
	s.Time = r.e.now().UnixMilli()
	if input != nil {
		s.Input = &domain.InputEvent{Body: *input, Time: s.Time}
	}
	if s.Turn == 1 && !s.Resume {
		r.preamble()
	}
	r.enter()
}

// preamble seeds metadata and runs top-level declarations once.
func (r *run) preamble() {
	for k, v := range r.cart.Meta {
		if _, ok := r.sess.Meta[k]; !ok {
			r.sess.Meta[k] = domain.FromAny(v)
		}
	}
	for _, n := range r.ix.Root().Children {
		if !hoisted[n.Type] {
			continue
		}
		if guard, ok := n.Attr(domain.AttrIf); ok && !r.truthy(guard) {
			continue
		}
		out := r.e.registry.Lookup(n.Type).Handle(r.ctx, r.action(n))
		r.ops = append(r.ops, out.Ops...)
	}
}

// enter picks the entry point of this call: the resume section after a
// resume request, the intro on the first turn, otherwise the saved address.
func (r *run) enter() {
	s := r.sess
	entered := false
	if s.Resume {
		s.Resume = false
		if n := r.ix.FindFirst(domain.TagResume); n != nil {
			ret := s.Address
			if ret == "" {
				ret = r.origin.Address
			}
			entered = r.enterSection(n, domain.BlockResume, ret)
		}
	}
	if !entered && s.Turn == 1 {
		if n := r.ix.FindFirst(domain.TagIntro); n != nil {
			ret := s.Address
			if ret == "" {
				ret = r.origin.Address
			}
			entered = r.enterSection(n, domain.BlockIntro, ret)
		}
	}
	if !entered && s.Address == "" {
		s.Address = r.origin.Address
	}
}

func (r *run) enterSection(n *domain.Node, typ domain.BlockType, ret string) bool {
	if len(n.Children) == 0 {
		return false
	}
	r.sess.Push(domain.Frame{Return: ret, Owner: n.Address, Type: typ})
	r.sess.Address = n.Children[0].Address
	return true
}

func (r *run) loop() {
	s := r.sess
	for {
		if r.dispatches >= r.opts.Ream {
			r.stop(domain.SeamGrant, "dispatch budget spent")
			return
		}
		if err := r.ctx.Err(); err != nil {
			r.stop(domain.SeamGrant, err.Error())
			return
		}
		if s.Address == domain.AddressEnd {
			r.ops = append(r.ops, domain.StoryEnd())
			r.stop(domain.SeamFinish, "story ended")
			return
		}
		node, ok := r.ix.FindByAddress(s.Address)
		if !ok {
			reason := fmt.Sprintf("no node at address %q", s.Address)
			r.ops = append(r.ops, domain.StoryError(reason))
			r.stop(domain.SeamError, reason)
			return
		}

		before := len(r.ops)
		out := r.dispatch(node)
		r.ops = append(r.ops, out.Ops...)
		if n := len(out.Ops); n > 0 && out.Ops[n-1].Type == domain.OpStoryError {
			r.stop(domain.SeamError, out.Ops[n-1].Reason)
			return
		}

		r.resolve(out)
		if r.checkpoint {
			r.checkpoint = false
			r.snapshot()
		}

		if len(r.ops) > before {
			last := r.ops[len(r.ops)-1]
			if seam, stop := last.Seam(); stop {
				r.stop(seam, reasonFor(last))
				return
			}
		}
	}
}

func reasonFor(op domain.Op) string {
	switch op.Type {
	case domain.OpRequestInput:
		return "input requested"
	case domain.OpPlayMedia:
		return "media pending"
	case domain.OpStoryEnd:
		return "story ended"
	default:
		return op.Reason
	}
}

func (r *run) dispatch(n *domain.Node) Outcome {
	r.dispatches++
	skipped := false
	var out Outcome

	switch {
	case n.Type != domain.TagRoot && r.ix.Parent(n) == r.ix.Root() && hoisted[n.Type]:
		skipped = true
	default:
		if guard, ok := n.Attr(domain.AttrIf); ok && !r.truthy(guard) {
			skipped = true
		}
	}

	if skipped {
		out = Outcome{Next: r.next(n, true)}
	} else {
		out = r.e.registry.Lookup(n.Type).Handle(r.ctx, r.action(n))
	}

	if r.opts.Verbose {
		entry := fmt.Sprintf("%s <%s>", n.Address, n.Type)
		if skipped {
			entry += " skipped"
		}
		r.trace = append(r.trace, entry)
	}
	if r.e.hooks.OnDispatch != nil {
		r.e.hooks.OnDispatch(r.ctx, &domain.DispatchEvent{
			HookBase: domain.HookBase{
				Timestamp: r.e.now(),
				Type:      domain.HookDispatch,
				SessionID: r.sess.ID,
				Turn:      r.sess.Turn,
			},
			Address: n.Address,
			Tag:     n.Type,
			Skipped: skipped,
		})
	}
	return out
}

func (r *run) action(n *domain.Node) *Action {
	return &Action{Node: n, r: r}
}

func (r *run) stop(seam domain.Seam, reason string) {
	r.seam = seam
	r.reason = reason
}

// snapshot records a checkpoint of the current session together with the
// events recorded since the previous one.
func (r *run) snapshot() {
	r.sess.Cycle = r.rng.Cycle()
	r.sess.AddCheckpoint(domain.Snapshot(r.sess, r.events), r.opts.MaxCheckpoints)
	r.events = nil
}

// settle finalizes the session and fills res.
func (r *run) settle(res *domain.Result) {
	r.sess.Input = nil
	r.snapshot()
	res.Ops = r.ops
	res.Seam = r.seam
	res.Address = r.sess.Address
	res.Session = r.sess
	res.Info.Reason = r.reason
	res.Info.Dispatches = r.dispatches
	res.Info.Trace = r.trace
}

func (r *run) record(ev domain.Event) {
	ev.Time = r.sess.Time
	ev.Turn = r.sess.Turn
	r.events = append(r.events, ev)
}

func (r *run) history() []domain.Event {
	out := r.sess.History()
	return append(out, r.events...)
}

func (r *run) env() ports.ScriptEnv {
	return ports.ScriptEnv{
		Scope:  r.scope,
		Random: r.rng,
		Now:    r.sess.Time,
		Events: r.history(),
	}
}

func (r *run) pipeline() *render.Pipeline {
	return &render.Pipeline{
		Evaluator: r.e.evaluator,
		Provider:  r.provider,
		Random:    r.rng,
		Variation: &r.sess.Variation,
		Models:    r.opts.Models,
		Env:       r.env(),
		Logger:    r.logger,
	}
}

func (r *run) render(text string) string {
	return r.pipeline().Render(r.ctx, text, r.scope)
}

// truthy evaluates a condition; failures count as false.
func (r *run) truthy(expr string) bool {
	expr = render.Interpolate(expr, r.scope)
	v, err := r.e.evaluator.Evaluate(r.ctx, expr, r.env())
	if err != nil {
		r.logger.WarnContext(r.ctx, "condition failed", "expr", expr, "err", err, "address", r.sess.Address)
		return false
	}
	return v.Truthy()
}
