package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown dialogue using
// glamour, with the style picked from the terminal background.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(s string) (string, error) { return s, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
