package runtime

import (
	"context"
	"log/slog"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/aretw0/fable/pkg/prng"
	"github.com/aretw0/fable/pkg/render"
	"github.com/aretw0/fable/pkg/tree"
)

// Action is the view of the running story a handler receives.
type Action struct {
	Node *domain.Node
	r    *run
}

func (a *Action) Session() *domain.Session     { return a.r.sess }
func (a *Action) Cartridge() *domain.Cartridge { return a.r.cart }
func (a *Action) Scope() domain.Scope          { return a.r.scope }
func (a *Action) Options() domain.Options      { return a.r.opts }
func (a *Action) Random() *prng.Source         { return a.r.rng }
func (a *Action) Index() *tree.Index           { return a.r.ix }
func (a *Action) Origin() *domain.Node         { return a.r.origin }
func (a *Action) Logger() *slog.Logger         { return a.r.logger.With("address", a.Node.Address, "tag", a.Node.Type) }

// Provider returns the metered, panic-safe collaborator.
func (a *Action) Provider() ports.ServiceProvider { return a.r.provider }

func (a *Action) Extractor() ports.Extractor { return a.r.extractor }

// Env returns the script environment for the current scope.
func (a *Action) Env() ports.ScriptEnv { return a.r.env() }

// Render runs the four rendering passes over text.
func (a *Action) Render(text string) string { return a.r.render(text) }

// Interpolate substitutes variables only.
func (a *Action) Interpolate(text string) string { return render.Interpolate(text, a.r.scope) }

// Attrs returns the node attributes, rendered except for verbatim ones.
func (a *Action) Attrs() map[string]string {
	if len(a.Node.Attributes) == 0 {
		return map[string]string{}
	}
	return a.r.pipeline().RenderAttributes(a.r.ctx, a.Node.Attributes, a.r.scope)
}

// Truthy evaluates a condition expression.
func (a *Action) Truthy(expr string) bool { return a.r.truthy(expr) }

// Evaluate computes an expression in the current scope.
func (a *Action) Evaluate(ctx context.Context, expr string) (domain.Value, error) {
	return a.r.e.evaluator.Evaluate(ctx, expr, a.r.env())
}

// Exec runs script statements in the current scope.
func (a *Action) Exec(ctx context.Context, code string) error {
	return a.r.e.evaluator.Exec(ctx, code, a.r.env())
}

// Next is the node after this one; skipChildren steps over the subtree.
func (a *Action) Next(skipChildren bool) *domain.Node { return a.r.next(a.Node, skipChildren) }

// Skip continues after this node without entering it.
func (a *Action) Skip() Outcome { return Outcome{Next: a.Next(true)} }

// Descend continues with the first child, or the next node when empty.
func (a *Action) Descend() Outcome { return Outcome{Next: a.Next(false)} }

// Record appends an event to the playthrough log.
func (a *Action) Record(ev domain.Event) {
	if ev.Address == "" {
		ev.Address = a.Node.Address
	}
	a.r.record(ev)
}

// Force makes flow continue at addr regardless of the frames in the way.
func (a *Action) Force(addr string) { a.r.sess.Target = addr }

// Checkpoint requests a snapshot once this node has been resolved.
func (a *Action) Checkpoint() { a.r.checkpoint = true }

// FireOutro enters the outro section and returns its first address, or ""
// when there is none or it already played.
func (a *Action) FireOutro() string { return a.r.fireOutro() }

// Resolve finds a node by "#id", id or address.
func (a *Action) Resolve(ref string) (*domain.Node, bool) {
	return a.r.ix.Resolve(a.Interpolate(ref))
}
