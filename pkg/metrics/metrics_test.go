package metrics

import (
	"math"
	"testing"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridOf(t *testing.T, rows [][]int) *domain.Grid {
	t.Helper()
	g, err := domain.GridFromRows(rows)
	require.NoError(t, err)
	return g
}

func TestCount_SumsToArea(t *testing.T) {
	g := gridOf(t, [][]int{
		{1, 0, -1},
		{0, 0, 1},
		{-1, -1, 0},
	})
	c := Count(g)
	assert.Equal(t, domain.Counts{Pos: 2, Neg: 3, Zero: 4}, c)
	assert.Equal(t, 9, c.Total())
}

func TestEntropy(t *testing.T) {
	tests := []struct {
		name   string
		counts domain.Counts
		want   float64
	}{
		{"all neutral", domain.Counts{Zero: 16}, 0},
		{"all positive", domain.Counts{Pos: 4}, 0},
		{"two equal classes", domain.Counts{Pos: 2, Neg: 2}, 1},
		{"three equal classes", domain.Counts{Pos: 3, Neg: 3, Zero: 3}, math.Log2(3)},
		{"single positive in 4x4", domain.Counts{Pos: 1, Zero: 15},
			-(1.0/16)*math.Log2(1.0/16) - (15.0/16)*math.Log2(15.0/16)},
		{"empty", domain.Counts{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Entropy(tt.counts), 1e-12)
		})
	}
}

func TestEntropy_ZeroOnlyWhenUniform(t *testing.T) {
	h := Entropy(domain.Counts{Pos: 1, Zero: 9999})
	assert.Greater(t, h, 0.0)

	assert.Equal(t, 0.0, Entropy(domain.Counts{Neg: 10}))
	assert.False(t, math.Signbit(Entropy(domain.Counts{Neg: 10})), "entropy must not be -0")
}

func TestEntropy_WithinRange(t *testing.T) {
	for pos := 0; pos <= 6; pos++ {
		for neg := 0; neg <= 6; neg++ {
			for zero := 0; zero <= 6; zero++ {
				h := Entropy(domain.Counts{Pos: pos, Neg: neg, Zero: zero})
				assert.GreaterOrEqual(t, h, 0.0)
				assert.LessOrEqual(t, h, MaxEntropy)
			}
		}
	}
}

func TestCompute_Deterministic(t *testing.T) {
	rows := [][]int{{1, -1}, {0, 1}}
	a := Compute(gridOf(t, rows))
	b := Compute(gridOf(t, rows))
	assert.Equal(t, a, b)
}

func TestWindow(t *testing.T) {
	h := []float64{0, 1, 2, 3, 4}
	assert.Equal(t, []float64{3, 4}, Window(h, 2))
	assert.Equal(t, h, Window(h, 0))
	assert.Equal(t, h, Window(h, 10))

	w := Window(h, 2)
	w[0] = 99
	assert.Equal(t, 3.0, h[3], "window must be a copy")
}
