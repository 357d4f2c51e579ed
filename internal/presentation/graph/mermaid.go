package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/tree"
)

// GraphOverlay contains session data to highlight on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromSession marks checkpoint addresses as visited and the resume
// address as current.
func OverlayFromSession(s *domain.Session) *GraphOverlay {
	if s == nil {
		return nil
	}
	o := &GraphOverlay{CurrentNode: s.Address}
	for _, cp := range s.Checkpoints {
		if cp.Address != "" {
			o.VisitedNodes = append(o.VisitedNodes, cp.Address)
		}
	}
	return o
}

// maxLabel bounds the text excerpt shown in a node.
const maxLabel = 32

// GenerateMermaid produces a Mermaid flowchart of the story tree.
// Containment edges are solid; jumps and yields are dotted edges to their
// targets. Shapes follow the node role:
//   - root, origin: ((circle))
//   - block: [[subroutine]]
//   - input: [/parallelogram/]
//   - if, while: {rhombus}
//   - everything else: [rectangle]
func GenerateMermaid(root *domain.Node, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if root == nil {
		return sb.String()
	}
	ix := tree.NewIndex(root)

	for _, node := range ix.Nodes() {
		id := sanitizeMermaidID(node.Address)
		opener, closer := shape(node.Type)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label(node), closer)

		for _, child := range node.Children {
			fmt.Fprintf(&sb, "    %s --> %s\n", id, sanitizeMermaidID(child.Address))
		}
		if node.Is(domain.TagJump, domain.TagYield) {
			ref := node.AttrOr(domain.AttrTo, "")
			if target, ok := ix.Resolve(ref); ok {
				fmt.Fprintf(&sb, "    %s -. %s .-> %s\n", id, node.Type, sanitizeMermaidID(target.Address))
			}
		}
		if ref := node.AttrOr(domain.AttrFallback, ""); ref != "" {
			if target, ok := ix.Resolve(ref); ok {
				fmt.Fprintf(&sb, "    %s -. fallback .-> %s\n", id, sanitizeMermaidID(target.Address))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, addr := range overlay.VisitedNodes {
			id := sanitizeMermaidID(addr)
			if id != "" && !seen[id] {
				seen[id] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", id)
			}
		}
		if overlay.CurrentNode != "" && overlay.CurrentNode != domain.AddressEnd {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}
	return sb.String()
}

func shape(tag string) (string, string) {
	switch tag {
	case domain.TagRoot, domain.TagOrigin:
		return "((", "))"
	case domain.TagBlock:
		return "[[", "]]"
	case domain.TagInput:
		return "[/", "/]"
	case domain.TagIf, domain.TagWhile:
		return "{", "}"
	}
	return "[", "]"
}

func label(n *domain.Node) string {
	parts := []string{n.Type}
	if id := n.ID(); id != "" {
		parts = append(parts, "#"+id)
	}
	if cond := n.AttrOr(domain.AttrCond, ""); cond != "" {
		parts = append(parts, cond)
	}
	if text := strings.Join(strings.Fields(n.Text), " "); text != "" {
		if r := []rune(text); len(r) > maxLabel {
			text = string(r[:maxLabel]) + "…"
		}
		parts = append(parts, text)
	}
	return strings.ReplaceAll(strings.Join(parts, " "), "\"", "'")
}

func sanitizeMermaidID(addr string) string {
	if addr == "" {
		return ""
	}
	return "n" + strings.NewReplacer(".", "_", "@", "_").Replace(addr)
}
