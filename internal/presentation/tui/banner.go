package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ternlab banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text, color string
	}{
		{" ⊕ · ⊖  _                  _       _     ", "#1f77b4"},
		{" · ⊕ · | |_ ___ _ __ _ __ | | __ _| |__  ", "#5b6fa8"},
		{" ⊖ · ⊕ | __/ _ \\ '__| '_ \\| |/ _` | '_ \\ ", "#8a5f8f"},
		{"       | ||  __/ |  | | | | | (_| | |_) |", "#b44a63"},
		{"        \\__\\___|_|  |_| |_|_|\\__,_|_.__/ ", "#d62728"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintf(w, "  version %s\n\n", version)
}
