package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// meter counts and traces collaborator calls made during one advance.
type meter struct {
	next   ports.ServiceProvider
	tracer trace.Tracer
	hooks  domain.LifecycleHooks
	sess   *domain.Session
	now    func() time.Time

	mu    sync.Mutex
	calls map[string]int
}

var _ ports.ServiceProvider = (*meter)(nil)

func newMeter(next ports.ServiceProvider, tracer trace.Tracer, hooks domain.LifecycleHooks, sess *domain.Session, now func() time.Time) *meter {
	return &meter{next: next, tracer: tracer, hooks: hooks, sess: sess, now: now, calls: map[string]int{}}
}

func (m *meter) cost(elapsed time.Duration) domain.Cost {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := domain.Cost{Elapsed: elapsed}
	if len(m.calls) > 0 {
		c.Calls = make(map[string]int, len(m.calls))
		for k, n := range m.calls {
			c.Calls[k] = n
		}
	}
	return c
}

func observe[T any](ctx context.Context, m *meter, method string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := m.tracer.Start(ctx, "fable.collaborator", trace.WithAttributes(attribute.String("fable.method", method)))
	defer span.End()

	started := m.now()
	out, err := fn(ctx)
	elapsed := m.now().Sub(started)

	m.mu.Lock()
	m.calls[method]++
	m.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if m.hooks.OnCollaborator != nil {
		m.hooks.OnCollaborator(ctx, &domain.CollaboratorEvent{
			HookBase: domain.HookBase{
				Timestamp: m.now(),
				Type:      domain.HookCollaborator,
				SessionID: m.sess.ID,
				Turn:      m.sess.Turn,
			},
			Method:   method,
			Duration: elapsed,
			Err:      err,
		})
	}
	return out, err
}

func (m *meter) GenerateText(ctx context.Context, req ports.TextRequest) (string, error) {
	return observe(ctx, m, "GenerateText", func(ctx context.Context) (string, error) { return m.next.GenerateText(ctx, req) })
}

func (m *meter) GenerateJSON(ctx context.Context, req ports.TextRequest, schema map[string]any) (map[string]any, error) {
	return observe(ctx, m, "GenerateJSON", func(ctx context.Context) (map[string]any, error) {
		return m.next.GenerateJSON(ctx, req, schema)
	})
}

func (m *meter) GenerateChat(ctx context.Context, messages []ports.ChatMessage, models []string) (string, error) {
	return observe(ctx, m, "GenerateChat", func(ctx context.Context) (string, error) {
		return m.next.GenerateChat(ctx, messages, models)
	})
}

func (m *meter) GenerateSpeech(ctx context.Context, req ports.SpeechRequest) (string, error) {
	return observe(ctx, m, "GenerateSpeech", func(ctx context.Context) (string, error) { return m.next.GenerateSpeech(ctx, req) })
}

func (m *meter) GenerateVoice(ctx context.Context, description string) (string, error) {
	return observe(ctx, m, "GenerateVoice", func(ctx context.Context) (string, error) {
		return m.next.GenerateVoice(ctx, description)
	})
}

func (m *meter) GenerateMusic(ctx context.Context, prompt string, d time.Duration) (string, error) {
	return observe(ctx, m, "GenerateMusic", func(ctx context.Context) (string, error) {
		return m.next.GenerateMusic(ctx, prompt, d)
	})
}

func (m *meter) GenerateSound(ctx context.Context, prompt string, d time.Duration) (string, error) {
	return observe(ctx, m, "GenerateSound", func(ctx context.Context) (string, error) {
		return m.next.GenerateSound(ctx, prompt, d)
	})
}

func (m *meter) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return observe(ctx, m, "GenerateImage", func(ctx context.Context) (string, error) { return m.next.GenerateImage(ctx, prompt) })
}

func (m *meter) ModerateText(ctx context.Context, text string) (bool, error) {
	return observe(ctx, m, "ModerateText", func(ctx context.Context) (bool, error) { return m.next.ModerateText(ctx, text) })
}

func (m *meter) FetchURL(ctx context.Context, url string) ([]byte, error) {
	return observe(ctx, m, "FetchURL", func(ctx context.Context) ([]byte, error) { return m.next.FetchURL(ctx, url) })
}
