package script

import (
	"fmt"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/ohler55/ojg/jp"
)

// QueryEvents filters the playthrough log. An empty query returns every
// event of the given kind (all kinds when kind is empty); otherwise query is
// a JSONPath applied to the event list, e.g. "$[?(@.from == 'Ann')].body".
func QueryEvents(events []domain.Event, kind domain.EventKind, query string) ([]any, error) {
	docs := make([]any, 0, len(events))
	for _, e := range events {
		if kind != "" && e.Kind != kind {
			continue
		}
		to := make([]any, len(e.To))
		for i, t := range e.To {
			to[i] = t
		}
		docs = append(docs, map[string]any{
			"kind":    string(e.Kind),
			"time":    e.Time,
			"turn":    int64(e.Turn),
			"from":    e.From,
			"to":      to,
			"body":    e.Body,
			"address": e.Address,
		})
	}
	if query == "" {
		return docs, nil
	}

	x, err := jp.ParseString(query)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", query, err)
	}
	return x.Get(docs), nil
}

// Select applies a JSONPath selector to decoded data. A single match is
// returned as is; several matches are returned as a list.
func Select(root any, selector string) (any, error) {
	if selector == "" || selector == "$" {
		return root, nil
	}
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	results := x.Get(root)
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}
