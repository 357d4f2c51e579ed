package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var bannerLines = []string{
	`  _____     _     _      `,
	` |  ___|_ _| |__ | | ___ `,
	` | |_ / _' | '_ \| |/ _ \`,
	` |  _| (_| | |_) | |  __/`,
	` |_|  \__,_|_.__/|_|\___|`,
}

var bannerColors = []string{"#f59e0b", "#f97316", "#ef4444", "#ec4899", "#a855f7"}

// PrintBanner writes the title banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(out.Color(bannerColors[i])))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
