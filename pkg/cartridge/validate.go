package cartridge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/tree"
)

// Issue is one problem found by Validate.
type Issue struct {
	Address string `json:"address"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s <%s>: %s", i.Address, i.Tag, i.Message)
}

// ValidationError aggregates every Issue in a cartridge.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		lines[i] = is.String()
	}
	return fmt.Sprintf("found %d errors:\n- %s", len(e.Issues), strings.Join(lines, "\n- "))
}

func (e *ValidationError) Unwrap() error { return domain.ErrInvalidCartridge }

// Validate checks references and required attributes. Interpolated targets
// ({{...}}) are resolved at run time and are not checked.
func Validate(c *domain.Cartridge) error {
	if c == nil || c.Root == nil {
		return fmt.Errorf("%w: empty cartridge", domain.ErrInvalidCartridge)
	}
	ix := tree.NewIndex(c.Root)
	var issues []Issue
	report := func(n *domain.Node, format string, args ...any) {
		issues = append(issues, Issue{Address: n.Address, Tag: n.Type, Message: fmt.Sprintf(format, args...)})
	}

	seenIDs := map[string]string{}
	seenAddr := map[string]bool{}
	sections := map[string]int{}

	for _, n := range ix.Nodes() {
		if seenAddr[n.Address] {
			report(n, "duplicate address")
		}
		seenAddr[n.Address] = true

		if id := n.ID(); id != "" {
			if prev, dup := seenIDs[id]; dup {
				report(n, "duplicate id %q (first at %s)", id, prev)
			} else {
				seenIDs[id] = n.Address
			}
		}

		switch n.Type {
		case domain.TagJump:
			checkTarget(ix, n, domain.AttrTo, true, report)
		case domain.TagYield:
			if target, ok := checkTarget(ix, n, domain.AttrTo, true, report); ok && target.Type != domain.TagBlock {
				report(n, "yield target %q is a <%s>, not a <block>", n.AttrOr(domain.AttrTo, ""), target.Type)
			}
		case domain.TagInput:
			checkTarget(ix, n, domain.AttrFallback, false, report)
			names := map[string]bool{}
			for _, f := range n.Children {
				if f.Type != domain.TagField {
					continue
				}
				name := f.AttrOr(domain.AttrName, "")
				if name == "" {
					report(f, "field without name")
				} else if names[name] {
					report(f, "duplicate field %q", name)
				}
				names[name] = true
				if p, ok := f.Attr(domain.AttrPattern); ok {
					if _, err := regexp.Compile(p); err != nil {
						report(f, "invalid pattern: %v", err)
					}
				}
			}
		case domain.TagVar:
			if n.AttrOr(domain.AttrName, "") == "" {
				report(n, "missing name")
			}
		case domain.TagWhile:
			if n.AttrOr(domain.AttrCond, "") == "" {
				report(n, "missing cond")
			}
		case domain.TagIf:
			if n.AttrOr(domain.AttrCond, "") == "" {
				report(n, "missing cond")
			}
		case domain.TagIntro, domain.TagResume, domain.TagOutro:
			sections[n.Type]++
			if sections[n.Type] == 2 {
				report(n, "only the first <%s> is used", n.Type)
			}
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func checkTarget(ix *tree.Index, n *domain.Node, attr string, required bool, report func(*domain.Node, string, ...any)) (*domain.Node, bool) {
	ref, ok := n.Attr(attr)
	if !ok || ref == "" {
		if required {
			report(n, "missing %q", attr)
		}
		return nil, false
	}
	if strings.Contains(ref, "{{") {
		return nil, false
	}
	target, found := ix.Resolve(ref)
	if !found {
		report(n, "%s target %q not found", attr, ref)
		return nil, false
	}
	return target, true
}
