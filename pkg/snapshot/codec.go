// Package snapshot serializes and restores complete simulation states.
//
// Export and Import are exact inverses for every valid state:
// Import(Export(s)) reproduces s field for field.
package snapshot

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/metrics"
)

// entropyTolerance absorbs float noise in histories produced by other implementations.
const entropyTolerance = 1e-9

// Export captures everything needed to resume s identically.
func Export(s *domain.SimulationState) *domain.Snapshot {
	history := make([]float64, len(s.EntropyHistory))
	copy(history, s.EntropyHistory)
	return &domain.Snapshot{
		Size:           s.Grid.Size(),
		Grid:           s.Grid.Rows(),
		PosThreshold:   s.Thresholds.Pos,
		NegThreshold:   s.Thresholds.Neg,
		Step:           s.Step,
		EntropyHistory: history,
	}
}

// Import validates snap and builds the state it describes.
// Every failure wraps domain.ErrInvalidSnapshot; nothing is partially applied
// because the caller only swaps in the returned state on success.
func Import(snap *domain.Snapshot) (*domain.SimulationState, error) {
	if snap == nil {
		return nil, invalid("empty snapshot")
	}
	if snap.Size <= 0 {
		return nil, invalid("size must be positive, got %d", snap.Size)
	}
	if len(snap.Grid) != snap.Size {
		return nil, invalid("grid has %d rows, size is %d", len(snap.Grid), snap.Size)
	}
	grid, err := domain.GridFromRows(snap.Grid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}

	thresholds := domain.Thresholds{Pos: snap.PosThreshold, Neg: snap.NegThreshold}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}

	if snap.Step < 0 {
		return nil, invalid("step must be non-negative, got %d", snap.Step)
	}

	history := snap.EntropyHistory
	switch {
	case len(history) == 0 && snap.Step == 0:
		history = []float64{metrics.Compute(grid).Entropy}
	case len(history) != snap.Step+1:
		return nil, invalid("entropy_history has %d entries, want step+1 = %d", len(history), snap.Step+1)
	default:
		history = append([]float64(nil), history...)
	}
	for i, h := range history {
		if math.IsNaN(h) || h < -entropyTolerance || h > metrics.MaxEntropy+entropyTolerance {
			return nil, invalid("entropy_history[%d] = %v out of range", i, h)
		}
	}

	return &domain.SimulationState{
		Grid:           grid,
		Thresholds:     thresholds,
		Step:           snap.Step,
		EntropyHistory: history,
	}, nil
}

// Encode renders a snapshot as indented JSON.
func Encode(snap *domain.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidSnapshot}, args...)...)
}
