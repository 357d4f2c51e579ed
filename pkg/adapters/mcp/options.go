package mcp

import (
	"fmt"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// decodeOptions overlays the raw "options" argument of a tool call on base.
// Keys follow the JSON names of domain.Options; unknown keys are rejected.
func decodeOptions(base domain.Options, raw map[string]any) (domain.Options, error) {
	out := base
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return base, err
	}
	if err := dec.Decode(raw); err != nil {
		return base, fmt.Errorf("invalid options: %w", err)
	}
	return out, nil
}
