package domain

// CellChange is one cell whose value differs between two grids.
type CellChange struct {
	X     int  `json:"x"`
	Y     int  `json:"y"`
	Value Cell `json:"value"`
}

// GridDiff represents the changes between two grids.
// It is designed to be serialized to JSON for partial updates on the client.
type GridDiff struct {
	// Full is set when the grids are not comparable (nil old grid or a size change);
	// clients should refetch the whole grid instead of applying Changes.
	Full bool `json:"full,omitempty"`

	Changes []CellChange `json:"changes,omitempty"`
}

// Empty reports whether the diff carries no changes.
func (d *GridDiff) Empty() bool {
	return d == nil || (!d.Full && len(d.Changes) == 0)
}

// Diff calculates the difference between oldGrid and newGrid.
// If oldGrid is nil or the sizes differ, it returns a Full diff.
func Diff(oldGrid, newGrid *Grid) *GridDiff {
	if newGrid == nil {
		return nil
	}
	if oldGrid == nil || oldGrid.size != newGrid.size {
		return &GridDiff{Full: true}
	}

	diff := &GridDiff{}
	for i, c := range newGrid.cells {
		if oldGrid.cells[i] != c {
			diff.Changes = append(diff.Changes, CellChange{
				X:     i % newGrid.size,
				Y:     i / newGrid.size,
				Value: c,
			})
		}
	}
	return diff
}
