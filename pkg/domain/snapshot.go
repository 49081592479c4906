package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxSnapshotIDLength bounds snapshot ids so every backend can store them.
const MaxSnapshotIDLength = 128

// Snapshot is the serializable union of everything needed to resume a lab exactly.
type Snapshot struct {
	Size           int       `json:"size" mapstructure:"size"`
	Grid           [][]int   `json:"grid" mapstructure:"grid"`
	PosThreshold   int       `json:"pos_threshold" mapstructure:"pos_threshold"`
	NegThreshold   int       `json:"neg_threshold" mapstructure:"neg_threshold"`
	Step           int       `json:"step" mapstructure:"step"`
	EntropyHistory []float64 `json:"entropy_history" mapstructure:"entropy_history"`
}

// Clone returns a deep copy so stores never share slices with callers.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Grid = make([][]int, len(s.Grid))
	for i, row := range s.Grid {
		c.Grid[i] = append([]int(nil), row...)
	}
	c.EntropyHistory = append([]float64(nil), s.EntropyHistory...)
	return &c
}

// ValidateSnapshotID rejects ids that are empty, too long, contain path
// separators or control characters, or name a directory.
func ValidateSnapshotID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty id", ErrInvalidSnapshotID)
	case len(id) > MaxSnapshotIDLength:
		return fmt.Errorf("%w: id longer than %d bytes", ErrInvalidSnapshotID, MaxSnapshotIDLength)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidSnapshotID, id)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidSnapshotID, id)
	case strings.IndexFunc(id, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: %q contains a control character", ErrInvalidSnapshotID, id)
	}
	return nil
}
