package ports

import (
	"context"

	"github.com/aretw0/fable/pkg/domain"
)

// Random is the deterministic stream scripts draw from.
type Random interface {
	Next() float64
	Intn(n int) int
	Roll(notation string) (int, error)
}

// ScriptEnv is everything a script can observe besides its variables.
type ScriptEnv struct {
	Scope  domain.Scope
	Random Random
	// Now is the session wall clock in milliseconds.
	Now int64
	// Events is the playthrough log, oldest first.
	Events []domain.Event
}

// Evaluator runs author scripts. Implementations must be bounded in time
// and must not reach outside env.
type Evaluator interface {
	// Evaluate computes a single expression.
	Evaluate(ctx context.Context, expr string, env ScriptEnv) (domain.Value, error)

	// Exec runs statements; assignments are written back through env.Scope.
	Exec(ctx context.Context, code string, env ScriptEnv) error
}

// Extractor turns free-form player input into typed field values.
// It returns *domain.ExtractionError when required fields are missing.
type Extractor interface {
	Extract(ctx context.Context, input string, fields []domain.FieldSpec) (map[string]domain.Value, error)
}
