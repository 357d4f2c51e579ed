package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
)

// Schema maps field names to their expected types.
type Schema map[string]Type

// Names returns the field names in sorted order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks data against s. Fields absent from data fail unless
// their type is Optional; fields absent from s are ignored.
func Validate(s Schema, data map[string]domain.Value) error {
	var errs []error
	for _, name := range s.Names() {
		t := s[name]
		v, ok := data[name]
		if !ok {
			if _, optional := t.(optionalType); optional {
				continue
			}
			errs = append(errs, &ValidationError{Key: name, Reason: "required"})
			continue
		}
		if err := t.Validate(v); err != nil {
			errs = append(errs, &ValidationError{Key: name, Reason: err.Error()})
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// ValidationError is a single field failure.
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
}

// AggregateError collects every field failure of one Validate call.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// ValidationErrors returns the individual failures when err carries an
// AggregateError, or nil.
func ValidationErrors(err error) []error {
	var agg *AggregateError
	if errors.As(err, &agg) {
		return agg.Errors
	}
	return nil
}
