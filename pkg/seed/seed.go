// Package seed produces initial grids for the named seed modes.
package seed

import (
	"fmt"
	"math/rand/v2"

	"github.com/aretw0/ternlab/pkg/domain"
)

// Mode names a seeding strategy.
type Mode string

const (
	// Chaos draws every cell uniformly from {-1, 0, +1}.
	Chaos Mode = "chaos"
	// Genesis places a single ⊕ at the center of an otherwise neutral grid.
	Genesis Mode = "genesis"
)

// Modes lists the supported modes in display order.
var Modes = []Mode{Chaos, Genesis}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Chaos, Genesis:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidSeedMode, s)
}

// NewRand returns a PCG source seeded from seed, for reproducible chaos.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// Generate builds a size x size grid for mode.
// rng is only consulted by Chaos; a nil rng uses the process-wide source.
func Generate(mode Mode, size int, rng *rand.Rand) (*domain.Grid, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidSize, size)
	}

	switch mode {
	case Chaos:
		intN := rand.IntN
		if rng != nil {
			intN = rng.IntN
		}
		cells := make([]domain.Cell, size*size)
		for i := range cells {
			cells[i] = domain.Cell(intN(3) - 1)
		}
		return domain.GridFromCells(size, cells)

	case Genesis:
		g, err := domain.NewGrid(size)
		if err != nil {
			return nil, err
		}
		cx, cy := Center(size)
		return g.With(cx, cy, domain.Pos)
	}

	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSeedMode, mode)
}

// Center returns the cell nearest the geometric center; for even sizes the
// tie breaks toward floor(N/2) on both axes.
func Center(size int) (x, y int) {
	return size / 2, size / 2
}
