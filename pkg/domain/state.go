package domain

import "fmt"

// SimulationState is the complete live state of one lab.
// It is owned by exactly one writer (the lab service); everything else sees copies.
type SimulationState struct {
	// Grid is the current matrix. Never mutated in place once published.
	Grid *Grid

	// Thresholds persist across steps until changed, reset or resized.
	Thresholds Thresholds

	// Step counts completed steps since the last reset/resize/seed/import.
	Step int

	// EntropyHistory holds one entry per completed step plus the initial state,
	// so len(EntropyHistory) == Step+1.
	EntropyHistory []float64
}

// Size returns the grid dimension.
func (s *SimulationState) Size() int { return s.Grid.Size() }

// Clone returns a shallow copy sharing the grid and the history backing array.
//
// History is append-only and only the lab's single writer appends, always to the
// newest state. An older state keeps reading its own [:len] prefix, which later
// appends never touch, so clones cost O(1) regardless of run length. Callers that
// hand history outside the lab must copy it (see metrics.Window, snapshot.Export).
func (s *SimulationState) Clone() *SimulationState {
	return &SimulationState{
		Grid:           s.Grid,
		Thresholds:     s.Thresholds,
		Step:           s.Step,
		EntropyHistory: s.EntropyHistory,
	}
}

// Validate checks the structural invariants of the state.
func (s *SimulationState) Validate() error {
	if s.Grid == nil {
		return fmt.Errorf("%w: nil grid", ErrInvalidSize)
	}
	if err := s.Thresholds.Validate(); err != nil {
		return err
	}
	if s.Step < 0 {
		return fmt.Errorf("negative step %d", s.Step)
	}
	if len(s.EntropyHistory) != s.Step+1 {
		return fmt.Errorf("entropy history has %d entries at step %d", len(s.EntropyHistory), s.Step)
	}
	return nil
}
