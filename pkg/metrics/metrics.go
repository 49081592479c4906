// Package metrics derives symbol counts and Shannon entropy from a grid.
package metrics

import (
	"math"

	"github.com/aretw0/ternlab/pkg/domain"
	"gonum.org/v1/gonum/stat"
)

// MaxEntropy is the entropy of a grid with all three classes equally frequent, log2(3).
var MaxEntropy = math.Log2(3)

// Count tallies each value of g. The result always sums to N*N.
func Count(g *domain.Grid) domain.Counts {
	var c domain.Counts
	for _, v := range g.Cells() {
		switch v {
		case domain.Pos:
			c.Pos++
		case domain.Neg:
			c.Neg++
		default:
			c.Zero++
		}
	}
	return c
}

// Entropy returns the Shannon entropy in bits of the three-class distribution in c.
// Empty classes contribute nothing (0 * log2(0) = 0).
func Entropy(c domain.Counts) float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	n := float64(total)
	p := []float64{float64(c.Pos) / n, float64(c.Neg) / n, float64(c.Zero) / n}

	// stat.Entropy works in nats and skips zero probabilities.
	h := stat.Entropy(p) / math.Ln2
	switch {
	case h <= 0:
		return 0
	case h > MaxEntropy:
		return MaxEntropy
	}
	return h
}

// Compute returns counts and entropy for g. Identical grids yield identical metrics.
func Compute(g *domain.Grid) domain.Metrics {
	c := Count(g)
	return domain.Metrics{Counts: c, Entropy: Entropy(c)}
}

// Window returns the trailing n entries of history, or all of it when n <= 0.
// The result is a copy.
func Window(history []float64, n int) []float64 {
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]float64, len(history))
	copy(out, history)
	return out
}
