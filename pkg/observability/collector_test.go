package observability

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/ternlab/pkg/lab"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_FedByLab(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	l, err := lab.New(lab.WithSize(5), lab.WithLifecycleHooks(c.Hooks()))
	require.NoError(t, err)

	_, err = l.Seed(ctx, "genesis", nil)
	require.NoError(t, err)
	_, err = l.StepN(ctx, 4)
	require.NoError(t, err)
	require.NoError(t, l.SetCell(ctx, 0, 0, -1))

	assert.Equal(t, 4.0, testutil.ToFloat64(c.steps))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mutations.WithLabelValues("seed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mutations.WithLabelValues("step")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mutations.WithLabelValues("set_cell")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.gridSize))

	// Genesis decays to neutral after one step, then one negative cell is set.
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cells.WithLabelValues("neg")))
	assert.Equal(t, 24.0, testutil.ToFloat64(c.cells.WithLabelValues("zero")))
	assert.Greater(t, testutil.ToFloat64(c.entropy), 0.0)

	assert.Equal(t, 1, testutil.CollectAndCount(c.stepDuration))
	expected := `
# HELP ternlab_grid_size Current grid dimension N
# TYPE ternlab_grid_size gauge
ternlab_grid_size 5
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ternlab_grid_size"))
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	assert.Error(t, err)
}
