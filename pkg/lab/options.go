package lab

import (
	"log/slog"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/ports"
)

// DefaultSize is the grid dimension of a fresh lab.
const DefaultSize = 100

// DefaultHistoryWindow is how many trailing entropy values a MetricsReport carries.
const DefaultHistoryWindow = 100

// Option configures the Lab.
type Option func(*Lab)

// WithSize sets the initial grid size. Reset keeps the current size.
func WithSize(n int) Option {
	return func(l *Lab) {
		l.initialSize = n
	}
}

// WithThresholds sets the default thresholds used at startup and restored by reset/resize.
func WithThresholds(t domain.Thresholds) Option {
	return func(l *Lab) {
		l.defaults = t
	}
}

// WithMaxSize caps resize requests; 0 disables the cap.
func WithMaxSize(n int) Option {
	return func(l *Lab) {
		l.maxSize = n
	}
}

// WithHistoryWindow sets how many entropy values MetricsReport returns; 0 returns all.
func WithHistoryWindow(n int) Option {
	return func(l *Lab) {
		l.historyWindow = n
	}
}

// WithWorkers fixes the number of goroutines used per step; 0 picks a default.
func WithWorkers(n int) Option {
	return func(l *Lab) {
		l.workers = n
	}
}

// WithStore sets the snapshot store. Defaults to an in-memory store.
func WithStore(store ports.SnapshotStore) Option {
	return func(l *Lab) {
		l.store = store
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(l *Lab) {
		l.hooks = hooks
	}
}

// WithLogger configures a logger for the Lab.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lab) {
		l.logger = logger
	}
}

// WithExperiments replaces the preset list.
func WithExperiments(experiments []Experiment) Option {
	return func(l *Lab) {
		l.experiments = append([]Experiment(nil), experiments...)
	}
}
