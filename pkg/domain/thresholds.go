package domain

import "fmt"

// Bounds for both thresholds; a Moore neighborhood has at most 8 members.
const (
	MinThreshold = 1
	MaxThreshold = 8
)

// DefaultThresholds is the configuration a fresh lab starts with.
var DefaultThresholds = Thresholds{Pos: 3, Neg: 3}

// Thresholds holds the neighbor counts required to flip a cell to each polarity.
type Thresholds struct {
	Pos int `json:"pos_threshold" yaml:"pos_threshold"`
	Neg int `json:"neg_threshold" yaml:"neg_threshold"`
}

// NewThresholds validates and returns a Thresholds value.
func NewThresholds(pos, neg int) (Thresholds, error) {
	t := Thresholds{Pos: pos, Neg: neg}
	return t, t.Validate()
}

// Validate checks both values lie within [MinThreshold, MaxThreshold].
func (t Thresholds) Validate() error {
	if t.Pos < MinThreshold || t.Pos > MaxThreshold {
		return fmt.Errorf("%w: pos_threshold %d not in [%d, %d]", ErrInvalidThreshold, t.Pos, MinThreshold, MaxThreshold)
	}
	if t.Neg < MinThreshold || t.Neg > MaxThreshold {
		return fmt.Errorf("%w: neg_threshold %d not in [%d, %d]", ErrInvalidThreshold, t.Neg, MinThreshold, MaxThreshold)
	}
	return nil
}
