// Package render turns authored text into final dialogue.
//
// Rendering runs four passes in a fixed order:
//
//  1. {{path}} variable interpolation
//  2. {$ expr $} script evaluation
//  3. [a|b], [cycle:a|b] and [shuffle:a|b] variation groups
//  4. {% prompt %} AI generation
//
// Each pass tolerates malformed fragments: a failing script renders as its
// original literal chunk and an unavailable generator renders as nothing.
package render

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
)

var (
	varRe    = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)
	scriptRe = regexp.MustCompile(`\{\$([\s\S]*?)\$\}`)
	groupRe  = regexp.MustCompile(`\[([^\[\]]*\|[^\[\]]*)\]`)
	genRe    = regexp.MustCompile(`\{%([\s\S]*?)%\}`)
)

// Pipeline holds the collaborators used by the rendering passes.
// Any collaborator may be nil; the matching pass then degrades.
type Pipeline struct {
	Evaluator ports.Evaluator
	Provider  ports.ServiceProvider
	Random    ports.Random
	// Variation is the session-persisted state of cycle and shuffle groups.
	Variation *domain.Variation
	Models    []string
	// Env supplies events and clock to script spans.
	Env    ports.ScriptEnv
	Logger *slog.Logger
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

// Render runs all four passes.
func (p *Pipeline) Render(ctx context.Context, text string, scope domain.Scope) string {
	if !strings.ContainsAny(text, "{[") {
		return text
	}
	text = Interpolate(text, scope)
	text = p.Scripts(ctx, text, scope)
	text = p.Vary(text)
	text = p.Generate(ctx, text)
	return text
}

// RenderAttributes renders every attribute except the verbatim ones.
func (p *Pipeline) RenderAttributes(ctx context.Context, attrs map[string]string, scope domain.Scope) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if domain.VerbatimAttributes[k] {
			out[k] = v
			continue
		}
		out[k] = p.Render(ctx, v, scope)
	}
	return out
}

// Interpolate replaces {{path}} with the stringified variable.
// Missing variables render as the empty string.
func Interpolate(text string, scope domain.Scope) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return varRe.ReplaceAllStringFunc(text, func(m string) string {
		path := strings.TrimSpace(varRe.FindStringSubmatch(m)[1])
		if path == "" || scope == nil {
			return ""
		}
		v, ok := scope.Lookup(path)
		if !ok {
			return ""
		}
		return v.String()
	})
}

// Scripts replaces {$ expr $} with the evaluated result.
func (p *Pipeline) Scripts(ctx context.Context, text string, scope domain.Scope) string {
	if !strings.Contains(text, "{$") {
		return text
	}
	if p.Evaluator == nil {
		return text
	}
	env := p.Env
	env.Scope = scope
	if env.Random == nil {
		env.Random = p.Random
	}
	return scriptRe.ReplaceAllStringFunc(text, func(m string) string {
		expr := scriptRe.FindStringSubmatch(m)[1]
		v, err := p.Evaluator.Evaluate(ctx, expr, env)
		if err != nil {
			p.logger().WarnContext(ctx, "inline script failed", "expr", strings.TrimSpace(expr), "err", err)
			return m
		}
		return v.String()
	})
}

// Vary resolves variation groups.
func (p *Pipeline) Vary(text string) string {
	if !strings.Contains(text, "|") {
		return text
	}
	return groupRe.ReplaceAllStringFunc(text, func(m string) string {
		inner := m[1 : len(m)-1]
		mode := "random"
		if i := strings.Index(inner, ":"); i > 0 {
			switch prefix := strings.TrimSpace(inner[:i]); prefix {
			case "cycle", "shuffle", "random":
				mode = prefix
				inner = inner[i+1:]
			}
		}
		options := strings.Split(inner, "|")
		return options[p.choose(mode, m, len(options))]
	})
}

func (p *Pipeline) choose(mode, key string, n int) int {
	switch mode {
	case "cycle":
		if p.Variation == nil {
			return 0
		}
		if p.Variation.Cycles == nil {
			p.Variation.Cycles = map[string]int{}
		}
		i := p.Variation.Cycles[key] % n
		p.Variation.Cycles[key] = i + 1
		return i
	case "shuffle":
		if p.Variation == nil || p.Random == nil {
			return 0
		}
		if p.Variation.Bags == nil {
			p.Variation.Bags = map[string][]int{}
		}
		bag := p.Variation.Bags[key]
		if len(bag) == 0 {
			bag = make([]int, n)
			for i := range bag {
				bag[i] = i
			}
			for i := n - 1; i > 0; i-- {
				j := p.Random.Intn(i + 1)
				bag[i], bag[j] = bag[j], bag[i]
			}
		}
		pick := bag[0]
		p.Variation.Bags[key] = bag[1:]
		if pick >= n {
			return n - 1
		}
		return pick
	default:
		if p.Random == nil {
			return 0
		}
		return p.Random.Intn(n)
	}
}

// Generate replaces {% prompt %} spans with generated text. The whole
// surrounding text is passed along as context.
func (p *Pipeline) Generate(ctx context.Context, text string) string {
	if !strings.Contains(text, "{%") {
		return text
	}
	surrounding := genRe.ReplaceAllString(text, "…")
	return genRe.ReplaceAllStringFunc(text, func(m string) string {
		prompt := strings.TrimSpace(genRe.FindStringSubmatch(m)[1])
		if prompt == "" || p.Provider == nil {
			return ""
		}
		out, err := p.Provider.GenerateText(ctx, ports.TextRequest{
			Prompt:  prompt,
			Context: surrounding,
			Models:  p.Models,
		})
		if err != nil {
			p.logger().WarnContext(ctx, "generation failed", "prompt", prompt, "err", err)
			return ""
		}
		return strings.TrimSpace(out)
	})
}
