package lab

import (
	"fmt"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/seed"
)

// Experiment is a named preset: thresholds plus a seed mode.
type Experiment struct {
	Name         string `json:"name" yaml:"name"`
	PosThreshold int    `json:"pos_threshold" yaml:"pos_threshold"`
	NegThreshold int    `json:"neg_threshold" yaml:"neg_threshold"`
	Seed         string `json:"seed" yaml:"seed"`
}

// DefaultExperiments are available when no presets are configured.
func DefaultExperiments() []Experiment {
	return []Experiment{
		{Name: "genesis-3-3", PosThreshold: 3, NegThreshold: 3, Seed: string(seed.Genesis)},
		{Name: "chaos-3-3", PosThreshold: 3, NegThreshold: 3, Seed: string(seed.Chaos)},
		{Name: "chaos-2-4", PosThreshold: 2, NegThreshold: 4, Seed: string(seed.Chaos)},
	}
}

// Validate checks the preset would be accepted by SetThresholds and Seed.
func (e Experiment) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("experiment name is empty")
	}
	if _, err := domain.NewThresholds(e.PosThreshold, e.NegThreshold); err != nil {
		return fmt.Errorf("experiment %q: %w", e.Name, err)
	}
	if _, err := seed.ParseMode(e.Seed); err != nil {
		return fmt.Errorf("experiment %q: %w", e.Name, err)
	}
	return nil
}
