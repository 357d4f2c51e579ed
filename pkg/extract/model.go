package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
)

// Model asks a language model for the fields the rules could not find.
type Model struct {
	rules    *Rules
	provider ports.ServiceProvider
	models   []string
}

// NewModel wraps provider. Rules always run first.
func NewModel(provider ports.ServiceProvider, models ...string) *Model {
	return &Model{rules: NewRules(), provider: provider, models: models}
}

var _ ports.Extractor = (*Model)(nil)

// Extract implements ports.Extractor.
func (m *Model) Extract(ctx context.Context, input string, fields []domain.FieldSpec) (map[string]domain.Value, error) {
	out, err := m.rules.Extract(ctx, input, fields)
	var missing *domain.ExtractionError
	if err == nil || !errors.As(err, &missing) || m.provider == nil {
		return out, err
	}

	want := make([]domain.FieldSpec, 0, len(missing.Missing))
	for _, f := range fields {
		for _, name := range missing.Missing {
			if f.Name == name {
				want = append(want, f)
			}
		}
	}

	got, genErr := m.provider.GenerateJSON(ctx, ports.TextRequest{
		System: "Extract the requested fields from the player's reply. Use null when a field is absent.",
		Prompt: input,
		Models: m.models,
	}, schemaFor(want))
	if genErr != nil {
		return out, err
	}

	var still []string
	for _, f := range want {
		raw, ok := got[f.Name]
		if !ok || raw == nil {
			still = append(still, f.Name)
			continue
		}
		v := domain.FromAny(raw)
		if v.Kind() == domain.KindString {
			v = domain.Coerce(v.String(), f.Type)
		}
		out[f.Name] = v
	}
	if len(still) > 0 {
		return out, &domain.ExtractionError{Missing: still}
	}
	return out, nil
}

func schemaFor(fields []domain.FieldSpec) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		prop := map[string]any{"type": jsonType(f.Type)}
		if len(f.Options) > 0 {
			prop["enum"] = f.Options
		}
		desc := f.Description
		if f.Pattern != "" {
			desc = strings.TrimSpace(fmt.Sprintf("%s (pattern %s)", desc, f.Pattern))
		}
		if desc != "" {
			prop["description"] = desc
		}
		props[f.Name] = prop
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func jsonType(t string) string {
	switch strings.ToLower(t) {
	case "number", "int", "integer", "float":
		return "number"
	case "boolean", "bool":
		return "boolean"
	default:
		return "string"
	}
}
