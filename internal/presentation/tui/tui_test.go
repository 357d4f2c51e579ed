package tui

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3\n")

	out := buf.String()
	if !strings.Contains(out, "|_|  \\__,_|_.__/|_|\\___|") {
		t.Errorf("Expected banner art, got %q", out)
	}
	if !strings.Contains(out, "v1.2.3") {
		t.Errorf("Expected version, got %q", out)
	}
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("**bold** move")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, "bold") || !strings.Contains(out, "move") {
		t.Errorf("Expected rendered text, got %q", out)
	}
}
