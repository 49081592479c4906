package lab

import (
	"context"
	"fmt"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/snapshot"
	"github.com/google/uuid"
)

// SaveSnapshot exports the current state into the store under name.
// An empty name gets a generated id. The id is returned.
func (l *Lab) SaveSnapshot(ctx context.Context, name string) (string, error) {
	id := name
	if id == "" {
		id = uuid.New().String()
	}
	if err := domain.ValidateSnapshotID(id); err != nil {
		return "", err
	}

	snap := snapshot.Export(l.current())
	if err := l.store.Save(ctx, id, snap); err != nil {
		return "", fmt.Errorf("failed to save snapshot %q: %w", id, err)
	}
	l.logger.Info("snapshot saved", "id", id, "step", snap.Step, "size", snap.Size)
	return id, nil
}

// LoadSnapshot imports a stored snapshot, with the same validation as Import.
func (l *Lab) LoadSnapshot(ctx context.Context, id string) error {
	if err := domain.ValidateSnapshotID(id); err != nil {
		return err
	}
	snap, err := l.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := l.Import(ctx, snap); err != nil {
		return err
	}
	l.logger.Info("snapshot loaded", "id", id, "step", snap.Step, "size", snap.Size)
	return nil
}

// DeleteSnapshot removes a stored snapshot. Deleting a missing id is not an error.
func (l *Lab) DeleteSnapshot(ctx context.Context, id string) error {
	if err := domain.ValidateSnapshotID(id); err != nil {
		return err
	}
	return l.store.Delete(ctx, id)
}

// ListSnapshots returns the stored snapshot ids.
func (l *Lab) ListSnapshots(ctx context.Context) ([]string, error) {
	return l.store.List(ctx)
}

// GetSnapshot returns a stored snapshot without loading it.
func (l *Lab) GetSnapshot(ctx context.Context, id string) (*domain.Snapshot, error) {
	if err := domain.ValidateSnapshotID(id); err != nil {
		return nil, err
	}
	return l.store.Load(ctx, id)
}
