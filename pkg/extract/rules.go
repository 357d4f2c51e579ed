// Package extract turns free-form player input into typed field values.
package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Rules extracts fields with patterns, keyword matching and number parsing.
// It needs no external service.
type Rules struct{}

// NewRules returns the rule-based extractor.
func NewRules() *Rules { return &Rules{} }

var _ ports.Extractor = (*Rules)(nil)

// Extract implements ports.Extractor.
func (r *Rules) Extract(_ context.Context, input string, fields []domain.FieldSpec) (map[string]domain.Value, error) {
	out := make(map[string]domain.Value, len(fields))
	var missing []string
	for _, f := range fields {
		v, ok := extractField(input, f, len(fields) == 1)
		if ok {
			out[f.Name] = v
			continue
		}
		if f.Required {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return out, &domain.ExtractionError{Missing: missing}
	}
	return out, nil
}

func extractField(input string, f domain.FieldSpec, only bool) (domain.Value, bool) {
	text := strings.TrimSpace(input)
	if text == "" {
		return domain.Null(), false
	}

	if f.Pattern != "" {
		re, err := regexp.Compile("(?i)" + f.Pattern)
		if err != nil {
			return domain.Null(), false
		}
		m := re.FindStringSubmatch(text)
		if m == nil {
			return domain.Null(), false
		}
		raw := m[0]
		if len(m) > 1 {
			raw = m[1]
		}
		return domain.Coerce(strings.TrimSpace(raw), f.Type), true
	}

	switch strings.ToLower(f.Type) {
	case "number", "int", "integer", "float":
		return parseNumber(text)
	case "boolean", "bool":
		return parseBool(text)
	case "enum", "choice":
		return matchOption(text, f.Options)
	default:
		if len(f.Options) > 0 {
			return matchOption(text, f.Options)
		}
		if only {
			return domain.Str(text), true
		}
		return domain.Null(), false
	}
}

// Fold normalizes text for comparison: case folded, diacritics removed.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(strings.TrimSpace(stripped))
}

var numberRe = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

var numberWords = map[string]float64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
}

func parseNumber(text string) (domain.Value, bool) {
	if m := numberRe.FindString(text); m != "" {
		f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
		if err == nil {
			return domain.Num(f), true
		}
	}
	for _, w := range words(Fold(text)) {
		if n, ok := numberWords[w]; ok {
			return domain.Num(n), true
		}
	}
	return domain.Null(), false
}

var (
	yesWords = map[string]bool{"yes": true, "y": true, "yeah": true, "yep": true, "sure": true, "ok": true, "okay": true, "true": true, "aye": true, "affirmative": true}
	noWords  = map[string]bool{"no": true, "n": true, "nope": true, "nah": true, "false": true, "never": true, "negative": true}
)

func parseBool(text string) (domain.Value, bool) {
	for _, w := range words(Fold(text)) {
		switch {
		case yesWords[w]:
			return domain.Bool(true), true
		case noWords[w]:
			return domain.Bool(false), true
		}
	}
	return domain.Null(), false
}

// matchOption returns the option that appears earliest in text.
func matchOption(text string, options []string) (domain.Value, bool) {
	folded := " " + strings.Join(words(Fold(text)), " ") + " "
	best, bestAt := "", -1
	for _, opt := range options {
		needle := " " + strings.Join(words(Fold(opt)), " ") + " "
		if at := strings.Index(folded, needle); at >= 0 && (bestAt < 0 || at < bestAt) {
			best, bestAt = opt, at
		}
	}
	if bestAt < 0 {
		return domain.Null(), false
	}
	return domain.Str(best), true
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
