package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aretw0/fable"
	"github.com/aretw0/fable/internal/presentation/graph"
	"github.com/aretw0/fable/pkg/domain"
)

// Validate loads source and reports its size and any tags the engine
// has no handler for. Loading fails on broken markup and dangling jumps.
func Validate(source string, w io.Writer) error {
	engine, err := fable.New(source)
	if err != nil {
		return err
	}
	handled := map[string]bool{}
	for _, t := range engine.Tags() {
		handled[t] = true
	}

	nodes := engine.Inspect()
	unknown := map[string][]string{}
	for _, n := range nodes {
		if n.Type != "" && !handled[n.Type] {
			unknown[n.Type] = append(unknown[n.Type], n.Address)
		}
	}

	fmt.Fprintf(w, "Story %q is valid: %d nodes.\n", engine.Name, len(nodes))
	tags := make([]string, 0, len(unknown))
	for t := range unknown {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	for _, t := range tags {
		fmt.Fprintf(w, "warning: <%s> is not handled and will be skipped (%s)\n", t, strings.Join(unknown[t], ", "))
	}
	return nil
}

// Inspect prints the story tree with node addresses, or the whole
// cartridge as JSON.
func Inspect(source string, w io.Writer, asJSON bool) error {
	engine, err := fable.New(source)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(engine.Cartridge())
	}
	for _, n := range engine.Inspect() {
		fmt.Fprintln(w, describe(n))
	}
	return nil
}

func describe(n *domain.Node) string {
	depth := strings.Count(n.Address, ".")
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.Address)
	b.WriteString(" <")
	b.WriteString(n.Type)
	b.WriteString(">")
	if id := n.ID(); id != "" {
		b.WriteString(" #" + id)
	}
	for _, k := range []string{domain.AttrCond, domain.AttrTo, domain.AttrFrom} {
		if v, ok := n.Attr(k); ok {
			fmt.Fprintf(&b, " %s=%q", k, v)
		}
	}
	if text := strings.Join(strings.Fields(n.Text), " "); text != "" {
		if r := []rune(text); len(r) > 40 {
			text = string(r[:40]) + "…"
		}
		fmt.Fprintf(&b, " %q", text)
	}
	return b.String()
}

// Graph prints a Mermaid flowchart of the story. With a session ID the
// visited and current nodes of that session are highlighted.
func Graph(ctx context.Context, st *Stack, source, sessionID string, w io.Writer) error {
	engine, err := fable.New(source)
	if err != nil {
		return err
	}
	var overlay *graph.GraphOverlay
	if sessionID != "" && st != nil {
		s, err := st.Sessions.Load(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("error loading session %q: %w", sessionID, err)
		}
		overlay = graph.OverlayFromSession(s)
	}
	_, err = io.WriteString(w, graph.GenerateMermaid(engine.Cartridge().Root, overlay))
	return err
}
