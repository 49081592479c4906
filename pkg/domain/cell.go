package domain

import "fmt"

// Cell is a single ternary grid value.
type Cell int8

const (
	Neg     Cell = -1 // ⊖ (red)
	Neutral Cell = 0
	Pos     Cell = 1 // ⊕ (blue)
)

// Valid reports whether c is one of the three legal values.
func (c Cell) Valid() bool {
	return c == Neg || c == Neutral || c == Pos
}

// Symbol returns the glyph used by the lab UI for the value.
func (c Cell) Symbol() string {
	switch c {
	case Pos:
		return "⊕"
	case Neg:
		return "⊖"
	default:
		return "·"
	}
}

// ParseCell converts a raw integer into a Cell.
// Returns ErrInvalidValue for anything outside {-1, 0, 1}.
func ParseCell(v int) (Cell, error) {
	c := Cell(v)
	if int(c) != v || !c.Valid() {
		return Neutral, fmt.Errorf("%w: %d", ErrInvalidValue, v)
	}
	return c, nil
}
