package ports

import (
	"context"

	"github.com/aretw0/ternlab/pkg/domain"
)

// SnapshotStore defines the interface for persisting named snapshots.
// This allows a lab session to be saved and resumed later, possibly by another process.
type SnapshotStore interface {
	// Save persists the snapshot under the given ID, replacing any previous one.
	Save(ctx context.Context, id string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given ID.
	// Returns domain.ErrSnapshotNotFound if the ID does not exist.
	Load(ctx context.Context, id string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given ID. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored snapshots.
	List(ctx context.Context) ([]string, error)
}
