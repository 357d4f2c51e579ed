package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/fable/internal/presentation/graph"
	"github.com/aretw0/fable/pkg/cartridge"
	"github.com/aretw0/fable/pkg/domain"
)

func compile(t *testing.T, markup string) *domain.Cartridge {
	t.Helper()
	c, err := cartridge.ParseMarkup([]byte(markup))
	if err != nil {
		t.Fatalf("ParseMarkup failed: %v", err)
	}
	cartridge.Prepare(c)
	return c
}

func TestGenerateMermaid(t *testing.T) {
	c := compile(t, `
<p>Hello "friend".</p>
<input to="name">Name?</input>
<while cond="n &lt; 3"><yield to="#greet"/></while>
<block id="greet"><p>Hi.</p></block>
<jump to="#greet"/>`)

	out := graph.GenerateMermaid(c.Root, nil)

	for _, want := range []string{
		"graph TD",
		`n0(("root"))`,
		`n0_0["p Hello 'friend'."]`,
		`n0_1[/"input Name?"/]`,
		`n0_2{"while n < 3"}`,
		`n0_3[["block #greet"]]`,
		"n0 --> n0_0",
		"n0_2_0 -. yield .-> n0_3",
		"n0_4 -. jump .-> n0_3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "classDef") {
		t.Error("Expected no overlay styles without overlay")
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	c := compile(t, `<p>One.</p><p>Two.</p>`)
	s := domain.NewSession("s")
	s.Address = "0.1"
	s.Checkpoints = []domain.Checkpoint{{Address: "0.0"}, {Address: "0.0"}}

	out := graph.GenerateMermaid(c.Root, graph.OverlayFromSession(s))

	if strings.Count(out, "class n0_0 visited;") != 1 {
		t.Errorf("Expected visited node styled once\n%s", out)
	}
	if !strings.Contains(out, "class n0_1 current;") {
		t.Errorf("Expected current node styled\n%s", out)
	}
}

func TestGenerateMermaid_Empty(t *testing.T) {
	if got := graph.GenerateMermaid(nil, nil); got != "graph TD\n" {
		t.Errorf("Expected bare header, got %q", got)
	}
}
