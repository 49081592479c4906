package middleware

import (
	"context"
	"time"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

type metricsMiddleware struct {
	next     ports.SnapshotStore
	duration *prometheus.HistogramVec
}

// NewMetricsMiddleware records ternlab_store_operation_duration_seconds{op,result}
// on reg, where result is ok, not_found or error.
func NewMetricsMiddleware(reg prometheus.Registerer) (Middleware, error) {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ternlab",
		Name:      "store_operation_duration_seconds",
		Help:      "Latency of snapshot store operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op", "result"})
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(duration); err != nil {
		return nil, err
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &metricsMiddleware{next: next, duration: duration}
	}, nil
}

func (m *metricsMiddleware) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case domain.IsNotFound(err):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	m.duration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

func (m *metricsMiddleware) Save(ctx context.Context, id string, snap *domain.Snapshot) error {
	start := time.Now()
	err := m.next.Save(ctx, id, snap)
	m.observe("save", start, err)
	return err
}

func (m *metricsMiddleware) Load(ctx context.Context, id string) (*domain.Snapshot, error) {
	start := time.Now()
	snap, err := m.next.Load(ctx, id)
	m.observe("load", start, err)
	return snap, err
}

func (m *metricsMiddleware) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := m.next.Delete(ctx, id)
	m.observe("delete", start, err)
	return err
}

func (m *metricsMiddleware) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := m.next.List(ctx)
	m.observe("list", start, err)
	return ids, err
}
