package domain

import (
	"encoding/json"
	"fmt"
)

// Grid is an immutable-by-convention NxN matrix of cells stored row-major.
// x is the column and y is the row, so the cell at (x, y) lives at index y*N+x.
//
// Once a Grid is published by the lab it is never written again; every update
// produces a new Grid. Readers may therefore hold a *Grid without locking.
type Grid struct {
	size  int
	cells []Cell
}

// MaxGridSize is the largest grid dimension any grid may have, whatever the
// configured limit. It keeps size*size well inside int and in memory.
const MaxGridSize = 4096

// CheckSize reports whether size is a usable grid dimension.
func CheckSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidSize, size)
	}
	if size > MaxGridSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrInvalidSize, size, MaxGridSize)
	}
	return nil
}

// NewGrid allocates an all-neutral NxN grid.
func NewGrid(size int) (*Grid, error) {
	if err := CheckSize(size); err != nil {
		return nil, err
	}
	return &Grid{size: size, cells: make([]Cell, size*size)}, nil
}

// GridFromCells wraps a row-major cell slice of length size*size.
// The slice is owned by the returned Grid afterwards.
func GridFromCells(size int, cells []Cell) (*Grid, error) {
	if err := CheckSize(size); err != nil {
		return nil, err
	}
	if len(cells) != size*size {
		return nil, fmt.Errorf("%w: %d cells for size %d", ErrInvalidSize, len(cells), size)
	}
	for i, c := range cells {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %d at (%d, %d)", ErrInvalidValue, c, i%size, i/size)
		}
	}
	return &Grid{size: size, cells: cells}, nil
}

// GridFromRows builds a grid from a square matrix of raw integers.
func GridFromRows(rows [][]int) (*Grid, error) {
	size := len(rows)
	if size == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrInvalidSize)
	}
	if err := CheckSize(size); err != nil {
		return nil, err
	}
	cells := make([]Cell, 0, size*size)
	for y, row := range rows {
		if len(row) != size {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidSize, y, len(row), size)
		}
		for x, v := range row {
			c, err := ParseCell(v)
			if err != nil {
				return nil, fmt.Errorf("cell (%d, %d): %w", x, y, err)
			}
			cells = append(cells, c)
		}
	}
	return &Grid{size: size, cells: cells}, nil
}

// Size returns N.
func (g *Grid) Size() int { return g.size }

// InBounds reports whether (x, y) addresses a cell of g.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.size && y < g.size
}

// At returns the cell at column x, row y. It panics when out of bounds.
func (g *Grid) At(x, y int) Cell {
	return g.cells[y*g.size+x]
}

// Cells returns the row-major backing slice. Callers must not modify it.
func (g *Grid) Cells() []Cell { return g.cells }

// With returns a copy of g with the cell at (x, y) replaced.
func (g *Grid) With(x, y int, c Cell) (*Grid, error) {
	if !g.InBounds(x, y) {
		return nil, fmt.Errorf("%w: (%d, %d) on %dx%d grid", ErrOutOfBounds, x, y, g.size, g.size)
	}
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidValue, c)
	}
	next := g.Clone()
	next.cells[y*g.size+x] = c
	return next, nil
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	cells := make([]Cell, len(g.cells))
	copy(cells, g.cells)
	return &Grid{size: g.size, cells: cells}
}

// Equal reports whether both grids have the same size and contents.
func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.size != o.size {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// Rows returns the grid as a matrix of raw integers, one slice per row.
func (g *Grid) Rows() [][]int {
	rows := make([][]int, g.size)
	for y := 0; y < g.size; y++ {
		row := make([]int, g.size)
		for x := 0; x < g.size; x++ {
			row[x] = int(g.cells[y*g.size+x])
		}
		rows[y] = row
	}
	return rows
}

// MarshalJSON encodes the grid as [[int]].
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Rows())
}

// UnmarshalJSON decodes [[int]], validating shape and values.
func (g *Grid) UnmarshalJSON(data []byte) error {
	var rows [][]int
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	parsed, err := GridFromRows(rows)
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}
