package tui

import (
	"io"
	"os"
	"strings"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Cell colors follow the lab's palette: blue for ⊕, red for ⊖.
const (
	posColor     = "#1f77b4"
	negColor     = "#d62728"
	neutralColor = "#6b7280"
)

// PlainGrid renders g as rows of symbols separated by spaces, without escape codes.
func PlainGrid(g *domain.Grid) string {
	var b strings.Builder
	n := g.Size()
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if x > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(g.At(x, y).Symbol())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// GridRenderer writes colored grids using the color profile of its output.
type GridRenderer struct {
	out *termenv.Output
}

// NewGridRenderer creates a renderer for w. Color support is detected from w;
// a non-terminal writer gets plain symbols.
func NewGridRenderer(w io.Writer) *GridRenderer {
	return &GridRenderer{out: termenv.NewOutput(w)}
}

// Render writes g to the renderer's output.
func (r *GridRenderer) Render(g *domain.Grid) error {
	pos := r.out.Color(posColor)
	neg := r.out.Color(negColor)
	neutral := r.out.Color(neutralColor)

	var b strings.Builder
	n := g.Size()
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if x > 0 {
				b.WriteByte(' ')
			}
			c := g.At(x, y)
			s := r.out.String(c.Symbol())
			switch c {
			case domain.Pos:
				s = s.Foreground(pos).Bold()
			case domain.Neg:
				s = s.Foreground(neg).Bold()
			default:
				s = s.Foreground(neutral)
			}
			b.WriteString(s.String())
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(r.out, b.String())
	return err
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// FitsTerminal reports whether a size x size grid fits the width of the terminal on f.
// Each cell takes two columns. Non-terminals always fit.
func FitsTerminal(f *os.File, size int) bool {
	if !IsTerminal(f) {
		return true
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return true
	}
	return size*2-1 <= width
}
