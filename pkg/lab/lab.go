// Package lab is the grid service: it owns the single live simulation state and
// exposes every operation of the lab as an atomic call.
//
// Published states are immutable. Each mutation builds a new SimulationState and
// swaps it in under the write lock, so readers only hold the read lock long enough
// to copy a pointer.
package lab

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aretw0/ternlab/internal/logging"
	"github.com/aretw0/ternlab/pkg/adapters/memory"
	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/metrics"
	"github.com/aretw0/ternlab/pkg/ports"
	"github.com/aretw0/ternlab/pkg/rule"
	"github.com/aretw0/ternlab/pkg/seed"
	"github.com/aretw0/ternlab/pkg/snapshot"
)

// MaxStepsPerCall bounds StepN.
const MaxStepsPerCall = 10000

// Lab is safe for concurrent use.
type Lab struct {
	mu    sync.RWMutex
	state *domain.SimulationState

	// emitMu keeps hook delivery in mutation order once mu is released.
	emitMu sync.Mutex

	initialSize   int
	defaults      domain.Thresholds
	maxSize       int
	historyWindow int
	workers       int

	store       ports.SnapshotStore
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	experiments []Experiment

	now func() time.Time
}

// New creates a lab holding an all-neutral grid with the default thresholds.
func New(opts ...Option) (*Lab, error) {
	l := &Lab{
		initialSize:   DefaultSize,
		defaults:      domain.DefaultThresholds,
		historyWindow: DefaultHistoryWindow,
		experiments:   DefaultExperiments(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.store == nil {
		l.store = memory.NewStore()
	}
	if l.logger == nil {
		l.logger = logging.NewNop()
	}

	if err := l.defaults.Validate(); err != nil {
		return nil, err
	}
	if err := l.checkSize(l.initialSize); err != nil {
		return nil, err
	}
	for _, e := range l.experiments {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	state, err := freshState(l.initialSize, l.defaults)
	if err != nil {
		return nil, err
	}
	l.state = state
	return l, nil
}

func freshState(size int, t domain.Thresholds) (*domain.SimulationState, error) {
	g, err := domain.NewGrid(size)
	if err != nil {
		return nil, err
	}
	return seededState(g, t), nil
}

// seededState starts a new run on g: step 0 with a single history entry.
func seededState(g *domain.Grid, t domain.Thresholds) *domain.SimulationState {
	return &domain.SimulationState{
		Grid:           g,
		Thresholds:     t,
		EntropyHistory: []float64{metrics.Compute(g).Entropy},
	}
}

func (l *Lab) checkSize(n int) error {
	if err := domain.CheckSize(n); err != nil {
		return err
	}
	if l.maxSize > 0 && n > l.maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", domain.ErrInvalidSize, n, l.maxSize)
	}
	return nil
}

// current returns the published state. The result must not be modified.
func (l *Lab) current() *domain.SimulationState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// --- Queries ---

// Grid returns the grid together with its metrics and thresholds.
func (l *Lab) Grid(_ context.Context) domain.GridView {
	return l.view(l.current())
}

// Metrics returns the metrics document for the current grid.
func (l *Lab) Metrics(_ context.Context) domain.MetricsReport {
	return l.report(l.current())
}

// Thresholds returns the active thresholds.
func (l *Lab) Thresholds(_ context.Context) domain.Thresholds {
	return l.current().Thresholds
}

// Export returns a snapshot of the full state.
func (l *Lab) Export(_ context.Context) *domain.Snapshot {
	return snapshot.Export(l.current())
}

// Experiments lists the registered presets.
func (l *Lab) Experiments() []Experiment {
	return append([]Experiment(nil), l.experiments...)
}

func (l *Lab) view(s *domain.SimulationState) domain.GridView {
	return domain.GridView{
		Grid:         s.Grid,
		Metrics:      l.report(s),
		PosThreshold: s.Thresholds.Pos,
		NegThreshold: s.Thresholds.Neg,
	}
}

func (l *Lab) report(s *domain.SimulationState) domain.MetricsReport {
	m := metrics.Compute(s.Grid)
	return domain.MetricsReport{
		Step:           s.Step,
		Counts:         m.Counts,
		Entropy:        m.Entropy,
		EntropyHistory: metrics.Window(s.EntropyHistory, l.historyWindow),
		Size:           s.Grid.Size(),
	}
}

// --- Mutations ---

// mutation is a pending state transition computed under the write lock.
type mutation struct {
	old, next *domain.SimulationState
	kind      domain.EventType
	steps     []*domain.LabEvent
}

// apply runs fn under the write lock and, when it succeeds, publishes its result
// and delivers hook events in order after the state lock is released.
// A panic in fn leaves the state untouched and the lock released.
func (l *Lab) apply(ctx context.Context, kind domain.EventType, fn func(cur *domain.SimulationState) (*mutation, error)) (*domain.SimulationState, error) {
	m, err := l.swap(kind, fn)
	if err != nil {
		l.logger.Debug("lab mutation rejected", "op", kind, "error", err)
		return nil, err
	}

	defer l.emitMu.Unlock()
	l.emit(ctx, m)
	l.logger.Debug("lab mutated", "op", kind, "step", m.next.Step, "size", m.next.Grid.Size())
	return m.next, nil
}

// swap publishes fn's result. On success it returns holding emitMu, taken before
// mu is released so hook delivery follows mutation order.
func (l *Lab) swap(kind domain.EventType, fn func(cur *domain.SimulationState) (*mutation, error)) (*mutation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := fn(l.state)
	if err != nil {
		return nil, err
	}
	m.old = l.state
	m.kind = kind
	l.state = m.next
	l.emitMu.Lock()
	return m, nil
}

func (l *Lab) emit(ctx context.Context, m *mutation) {
	if l.hooks.OnStep != nil {
		for _, e := range m.steps {
			l.hooks.OnStep(ctx, e)
		}
	}
	if l.hooks.OnMutation != nil {
		e := l.event(m.kind, m.next)
		e.Diff = domain.Diff(m.old.Grid, m.next.Grid)
		l.hooks.OnMutation(ctx, e)
	}
}

func (l *Lab) event(kind domain.EventType, s *domain.SimulationState) *domain.LabEvent {
	mt := metrics.Compute(s.Grid)
	return &domain.LabEvent{
		Timestamp:  l.now(),
		Type:       kind,
		Step:       s.Step,
		Size:       s.Grid.Size(),
		Counts:     mt.Counts,
		Entropy:    mt.Entropy,
		Thresholds: s.Thresholds,
	}
}

// SetCell writes one cell. Step and history are kept.
func (l *Lab) SetCell(ctx context.Context, x, y, value int) error {
	_, err := l.apply(ctx, domain.EventSetCell, func(cur *domain.SimulationState) (*mutation, error) {
		if !cur.Grid.InBounds(x, y) {
			return nil, fmt.Errorf("%w: (%d, %d) on a %dx%d grid", domain.ErrOutOfBounds, x, y, cur.Size(), cur.Size())
		}
		c, err := domain.ParseCell(value)
		if err != nil {
			return nil, err
		}
		g, err := cur.Grid.With(x, y, c)
		if err != nil {
			return nil, err
		}
		next := cur.Clone()
		next.Grid = g
		return &mutation{next: next}, nil
	})
	return err
}

// Step advances the simulation by one generation.
func (l *Lab) Step(ctx context.Context) (domain.GridView, error) {
	return l.StepN(ctx, 1)
}

// StepN advances k generations without releasing the lock in between.
func (l *Lab) StepN(ctx context.Context, k int) (domain.GridView, error) {
	if k < 1 || k > MaxStepsPerCall {
		return domain.GridView{}, fmt.Errorf("%w: step count must be in [1, %d], got %d", domain.ErrInvalidValue, MaxStepsPerCall, k)
	}
	collect := l.hooks.OnStep != nil

	s, err := l.apply(ctx, domain.EventStep, func(cur *domain.SimulationState) (*mutation, error) {
		next := cur.Clone()
		var events []*domain.LabEvent
		for i := 0; i < k; i++ {
			start := time.Now()
			g, err := rule.StepWorkers(next.Grid, next.Thresholds, l.workers)
			if err != nil {
				return nil, err
			}
			elapsed := time.Since(start)

			next.Grid = g
			next.Step++
			next.EntropyHistory = append(next.EntropyHistory, metrics.Compute(g).Entropy)

			if collect {
				e := l.event(domain.EventStep, next)
				e.Duration = elapsed
				events = append(events, e)
			}
		}
		return &mutation{next: next, steps: events}, nil
	})
	if err != nil {
		return domain.GridView{}, err
	}
	return l.view(s), nil
}

// Reset clears the grid to neutral at the current size and restores the default thresholds.
func (l *Lab) Reset(ctx context.Context) error {
	_, err := l.apply(ctx, domain.EventReset, func(cur *domain.SimulationState) (*mutation, error) {
		next, err := freshState(cur.Size(), l.defaults)
		if err != nil {
			return nil, err
		}
		return &mutation{next: next}, nil
	})
	return err
}

// Resize replaces the grid with an all-neutral n x n grid.
func (l *Lab) Resize(ctx context.Context, n int) error {
	if err := l.checkSize(n); err != nil {
		return err
	}
	_, err := l.apply(ctx, domain.EventResize, func(_ *domain.SimulationState) (*mutation, error) {
		next, err := freshState(n, l.defaults)
		if err != nil {
			return nil, err
		}
		return &mutation{next: next}, nil
	})
	return err
}

// Seed fills the grid using mode and restarts the run at step 0.
// A non-nil rngSeed makes chaos reproducible.
func (l *Lab) Seed(ctx context.Context, mode string, rngSeed *int64) (domain.GridView, error) {
	m, err := seed.ParseMode(mode)
	if err != nil {
		return domain.GridView{}, err
	}
	s, err := l.apply(ctx, domain.EventSeed, func(cur *domain.SimulationState) (*mutation, error) {
		g, err := seed.Generate(m, cur.Size(), randFor(rngSeed))
		if err != nil {
			return nil, err
		}
		return &mutation{next: seededState(g, cur.Thresholds)}, nil
	})
	if err != nil {
		return domain.GridView{}, err
	}
	return l.view(s), nil
}

func randFor(rngSeed *int64) *rand.Rand {
	if rngSeed == nil {
		return nil
	}
	return seed.NewRand(*rngSeed)
}

// SetThresholds replaces both thresholds. Step and history are kept.
func (l *Lab) SetThresholds(ctx context.Context, pos, neg int) (domain.Thresholds, error) {
	t, err := domain.NewThresholds(pos, neg)
	if err != nil {
		return domain.Thresholds{}, err
	}
	_, err = l.apply(ctx, domain.EventThresholds, func(cur *domain.SimulationState) (*mutation, error) {
		next := cur.Clone()
		next.Thresholds = t
		return &mutation{next: next}, nil
	})
	if err != nil {
		return domain.Thresholds{}, err
	}
	return t, nil
}

// Import replaces the whole state with snap after validating it.
func (l *Lab) Import(ctx context.Context, snap *domain.Snapshot) error {
	st, err := snapshot.Import(snap)
	if err != nil {
		return err
	}
	if err := l.checkSize(st.Size()); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	_, err = l.apply(ctx, domain.EventImport, func(_ *domain.SimulationState) (*mutation, error) {
		return &mutation{next: st}, nil
	})
	return err
}

// ImportDocument imports a loosely-typed document. Missing thresholds are taken
// from the state the document replaces.
func (l *Lab) ImportDocument(ctx context.Context, doc *snapshot.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: empty document", domain.ErrInvalidSnapshot)
	}
	_, err := l.apply(ctx, domain.EventImport, func(cur *domain.SimulationState) (*mutation, error) {
		st, err := snapshot.Import(doc.Resolve(cur.Thresholds))
		if err != nil {
			return nil, err
		}
		if err := l.checkSize(st.Size()); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
		}
		return &mutation{next: st}, nil
	})
	return err
}

// RunExperiment applies a preset's thresholds and seeds the grid in one step.
func (l *Lab) RunExperiment(ctx context.Context, name string, rngSeed *int64) (domain.GridView, error) {
	var exp *Experiment
	for i := range l.experiments {
		if l.experiments[i].Name == name {
			exp = &l.experiments[i]
			break
		}
	}
	if exp == nil {
		return domain.GridView{}, fmt.Errorf("%w: %q", domain.ErrExperimentNotFound, name)
	}
	mode, err := seed.ParseMode(exp.Seed)
	if err != nil {
		return domain.GridView{}, err
	}
	t, err := domain.NewThresholds(exp.PosThreshold, exp.NegThreshold)
	if err != nil {
		return domain.GridView{}, err
	}

	s, err := l.apply(ctx, domain.EventSeed, func(cur *domain.SimulationState) (*mutation, error) {
		g, err := seed.Generate(mode, cur.Size(), randFor(rngSeed))
		if err != nil {
			return nil, err
		}
		return &mutation{next: seededState(g, t)}, nil
	})
	if err != nil {
		return domain.GridView{}, err
	}
	l.logger.Info("experiment started", "experiment", name, "size", s.Grid.Size())
	return l.view(s), nil
}
