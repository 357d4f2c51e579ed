package runtime

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
)

// inputHandler asks the player for input, then extracts the declared
// fields from the reply. Failed extraction re-prompts up to the retry
// budget before taking the fallback.
type inputHandler struct{}

func (inputHandler) Tags() []string { return []string{domain.TagInput} }

func (inputHandler) Handle(ctx context.Context, a *Action) Outcome {
	s := a.Session()
	fields := fieldSpecs(a.Node)
	attempts := attemptKey(a.Node)

	if s.Input == nil {
		return prompt(a, fields, 0)
	}
	body := strings.TrimSpace(s.Input.Body)
	s.Input = nil
	a.Record(domain.Event{Kind: domain.EventInput, From: s.Player, Body: body})

	if moderated(a) {
		if flagged, _ := a.Provider().ModerateText(ctx, body); flagged {
			a.Logger().InfoContext(ctx, "input flagged by moderation")
			return retry(a, fields, "input was flagged")
		}
	}

	to := a.Node.AttrOr(domain.AttrTo, "")
	if len(fields) == 0 {
		if to == "" {
			to = domain.TagInput
		}
		a.Scope().Set(to, domain.Str(body))
		delete(s.Cache, attempts)
		return a.Skip()
	}

	values, err := a.Extractor().Extract(ctx, body, fields)
	if err != nil {
		var missing *domain.ExtractionError
		if !errors.As(err, &missing) {
			a.Logger().WarnContext(ctx, "input extraction failed", "err", err)
		}
		return retry(a, fields, err.Error())
	}

	grouped := to != ""
	for _, f := range fields {
		if v, ok := values[f.Name]; ok {
			a.Scope().Set(f.Name, v)
		}
		if f.Name == to {
			grouped = false
		}
	}
	if grouped {
		a.Scope().Set(to, domain.Object(values))
	}
	delete(s.Cache, attempts)
	return a.Skip()
}

func prompt(a *Action, fields []domain.FieldSpec, attempt int) Outcome {
	attrs := a.Attrs()
	body := strings.TrimSpace(attrs[domain.AttrPrompt])
	if body == "" {
		body = strings.TrimSpace(a.Render(a.Node.Text))
	}
	op := domain.Op{
		Type:    domain.OpRequestInput,
		Body:    body,
		Fields:  fields,
		Retry:   attempt,
		Address: a.Node.Address,
	}
	return Outcome{Ops: []domain.Op{op}, Next: a.Node}
}

func retry(a *Action, fields []domain.FieldSpec, reason string) Outcome {
	s := a.Session()
	key := attemptKey(a.Node)
	n := 1
	if prev, ok := s.Cache[key].Float(); ok {
		n = int(prev) + 1
	}

	max := a.Options().InputRetryMax
	if v, err := strconv.Atoi(a.Node.AttrOr(domain.AttrRetry, "")); err == nil && v >= 0 {
		max = v
	}
	if n <= max {
		s.Cache[key] = domain.Num(float64(n))
		return prompt(a, fields, n)
	}

	delete(s.Cache, key)
	if ref, ok := a.Node.Attr(domain.AttrFallback); ok && ref != "" {
		if target, found := a.Resolve(ref); found {
			return Outcome{Next: target, Jump: true}
		}
		return Outcome{Ops: []domain.Op{storyError(a, "input fallback %q not found", ref)}}
	}
	return Outcome{Ops: []domain.Op{storyError(a, "input not understood: %s", reason)}}
}

func attemptKey(n *domain.Node) string { return "input:" + n.Address }

func moderated(a *Action) bool {
	v, _ := strconv.ParseBool(a.Node.AttrOr(domain.AttrModerate, "false"))
	return v
}

func fieldSpecs(n *domain.Node) []domain.FieldSpec {
	var out []domain.FieldSpec
	for _, c := range n.Children {
		if c.Type != domain.TagField {
			continue
		}
		required, _ := strconv.ParseBool(c.AttrOr(domain.AttrRequired, "false"))
		out = append(out, domain.FieldSpec{
			Name:        c.AttrOr(domain.AttrName, ""),
			Type:        c.AttrOr(domain.AttrType, ""),
			Required:    required,
			Pattern:     c.AttrOr(domain.AttrPattern, ""),
			Options:     splitList(c.AttrOr(domain.AttrOptions, "")),
			Description: c.AttrOr(domain.AttrDesc, strings.TrimSpace(c.Text)),
		})
	}
	return out
}
