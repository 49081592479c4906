// Package rule implements the neighbor-threshold recursion rule.
//
// Every step is a synchronous whole-grid update: each next cell is computed
// from the previous grid only, and the previous grid is never written.
// Neighborhoods are bounded; cells outside the grid do not exist (no wraparound).
package rule

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/aretw0/ternlab/pkg/domain"
)

// parallelMinRows is the smallest grid that is split across workers.
const parallelMinRows = 64

// Next returns the value of a cell with p positive and m negative neighbors.
// The positive threshold is checked first, so a cell qualifying for both becomes ⊕.
// A cell meeting neither threshold decays to neutral; the rule has no memory term.
func Next(p, m int, t domain.Thresholds) domain.Cell {
	if p >= t.Pos {
		return domain.Pos
	}
	if m >= t.Neg {
		return domain.Neg
	}
	return domain.Neutral
}

// Neighbors counts the ⊕ and ⊖ cells among the up-to-8 Moore neighbors of (x, y).
func Neighbors(g *domain.Grid, x, y int) (p, m int) {
	n := g.Size()
	cells := g.Cells()
	for dy := -1; dy <= 1; dy++ {
		ny := y + dy
		if ny < 0 || ny >= n {
			continue
		}
		row := ny * n
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx := x + dx
			if nx < 0 || nx >= n {
				continue
			}
			switch cells[row+nx] {
			case domain.Pos:
				p++
			case domain.Neg:
				m++
			}
		}
	}
	return p, m
}

// Step computes the next grid using one worker per available CPU for large grids.
func Step(g *domain.Grid, t domain.Thresholds) (*domain.Grid, error) {
	return StepWorkers(g, t, 0)
}

// StepWorkers is Step with an explicit worker count; workers <= 0 picks a default.
// The result is identical for any worker count.
func StepWorkers(g *domain.Grid, t domain.Thresholds, workers int) (*domain.Grid, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grid", domain.ErrInvalidSize)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	n := g.Size()
	if workers <= 0 {
		workers = 1
		if n >= parallelMinRows {
			workers = runtime.GOMAXPROCS(0)
		}
	}
	if workers > n {
		workers = n
	}

	next := make([]domain.Cell, n*n)
	if workers == 1 {
		nextRows(g, t, next, 0, n)
		return domain.GridFromCells(n, next)
	}

	// Each worker owns a disjoint band of rows in next and only reads g.
	var wg sync.WaitGroup
	band := n / workers
	for i := 0; i < workers; i++ {
		start := i * band
		end := start + band
		if i == workers-1 {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			nextRows(g, t, next, start, end)
		}(start, end)
	}
	wg.Wait()

	return domain.GridFromCells(n, next)
}

func nextRows(g *domain.Grid, t domain.Thresholds, next []domain.Cell, startY, endY int) {
	n := g.Size()
	for y := startY; y < endY; y++ {
		for x := 0; x < n; x++ {
			p, m := Neighbors(g, x, y)
			next[y*n+x] = Next(p, m, t)
		}
	}
}
