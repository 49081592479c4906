package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainGrid(t *testing.T) {
	g, err := domain.GridFromRows([][]int{{1, 0}, {0, -1}})
	require.NoError(t, err)

	assert.Equal(t, "⊕ ·\n· ⊖\n", PlainGrid(g))
}

func TestGridRenderer_WritesEveryRow(t *testing.T) {
	g, err := domain.GridFromRows([][]int{{1, 0, 0}, {0, -1, 0}, {0, 0, 0}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewGridRenderer(&buf).Render(g))

	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, "\n"))
	assert.Equal(t, 1, strings.Count(out, "⊕"))
	assert.Equal(t, 1, strings.Count(out, "⊖"))
	assert.Equal(t, 7, strings.Count(out, "·"))
}

func TestRunReport_Markdown(t *testing.T) {
	r := RunReport{
		Experiment: "chaos-2-4",
		Seed:       "chaos",
		Thresholds: domain.Thresholds{Pos: 2, Neg: 4},
		Steps:      10,
		Metrics: domain.MetricsReport{
			Step:           10,
			Counts:         domain.Counts{Pos: 3, Neg: 2, Zero: 11},
			Entropy:        1.2,
			EntropyHistory: []float64{1.5, 1.2},
			Size:           4,
		},
	}

	md := r.Markdown()
	assert.Contains(t, md, "# Run report: chaos-2-4")
	assert.Contains(t, md, "| grid | 4x4 |")
	assert.Contains(t, md, "pos 2, neg 4")
	assert.Contains(t, md, "| 3 | 2 | 11 | 1.2000 |")
	assert.Contains(t, md, "ranged from 1.2000 to 1.5000")
	assert.NotContains(t, md, "decayed")
}

func TestRunReport_Decayed(t *testing.T) {
	md := RunReport{Metrics: domain.MetricsReport{Counts: domain.Counts{Zero: 4}, Size: 2}}.Markdown()
	assert.Contains(t, md, "# Run report\n")
	assert.Contains(t, md, "decayed to neutral")
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("# Title\n\nbody")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "version 1.2.3")
}
