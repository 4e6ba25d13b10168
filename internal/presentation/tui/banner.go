package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the Tendril ASCII art banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	// Green to teal, like a young shoot
	lines := []struct {
		text  string
		color string
	}{
		{"  _                  _      _ _ ", "#4ade80"},
		{" | |_ ___ _ __   __| |_ __(_) |", "#34d399"},
		{" | __/ _ \\ '_ \\ / _` | '__| | |", "#2dd4bf"},
		{" | ||  __/ | | | (_| | |  | | |", "#22d3ee"},
		{"  \\__\\___|_| |_|\\__,_|_|  |_|_|", "#38bdf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
