package observability

import (
	"context"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes lab activity as prometheus metrics. It is fed entirely by
// lifecycle hooks; wire it with lab.WithLifecycleHooks(c.Hooks()).
type Collector struct {
	steps        prometheus.Counter
	mutations    *prometheus.CounterVec
	entropy      prometheus.Gauge
	cells        *prometheus.GaugeVec
	gridSize     prometheus.Gauge
	stepDuration prometheus.Histogram
}

// NewCollector creates the collectors and registers them with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ternlab_steps_total",
			Help: "Total number of generations computed",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ternlab_mutations_total",
			Help: "Total number of successful state mutations by operation",
		}, []string{"op"}),
		entropy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ternlab_entropy_bits",
			Help: "Shannon entropy of the current grid in bits",
		}),
		cells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ternlab_cells",
			Help: "Number of cells per polarity in the current grid",
		}, []string{"polarity"}),
		gridSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ternlab_grid_size",
			Help: "Current grid dimension N",
		}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ternlab_step_duration_seconds",
			Help:    "Duration of a single generation",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 10),
		}),
	}

	for _, col := range []prometheus.Collector{c.steps, c.mutations, c.entropy, c.cells, c.gridSize, c.stepDuration} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Hooks returns the lifecycle hooks that update the collector.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMutation: func(_ context.Context, e *domain.LabEvent) {
			c.mutations.WithLabelValues(string(e.Type)).Inc()
			c.observe(e)
		},
		OnStep: func(_ context.Context, e *domain.LabEvent) {
			c.steps.Inc()
			c.stepDuration.Observe(e.Duration.Seconds())
		},
	}
}

func (c *Collector) observe(e *domain.LabEvent) {
	c.entropy.Set(e.Entropy)
	c.gridSize.Set(float64(e.Size))
	c.cells.WithLabelValues("pos").Set(float64(e.Counts.Pos))
	c.cells.WithLabelValues("neg").Set(float64(e.Counts.Neg))
	c.cells.WithLabelValues("zero").Set(float64(e.Counts.Zero))
}
