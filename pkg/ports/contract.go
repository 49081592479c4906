package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractSnapshot(step int) *domain.Snapshot {
	history := make([]float64, step+1)
	for i := range history {
		history[i] = 0.25 * float64(i%4)
	}
	return &domain.Snapshot{
		Size:           3,
		Grid:           [][]int{{1, 0, -1}, {0, 1, 0}, {-1, 0, 1}},
		PosThreshold:   2,
		NegThreshold:   5,
		Step:           step,
		EntropyHistory: history,
	}
}

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	id := "contract-test-snapshot-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := contractSnapshot(3)

		err := store.Save(ctx, id, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap, loaded)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, contractSnapshot(1)))
		require.NoError(t, store.Save(ctx, id, contractSnapshot(4)))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 4, loaded.Step)
		assert.Len(t, loaded.EntropyHistory, 5)
	})

	t.Run("Isolation", func(t *testing.T) {
		snap := contractSnapshot(0)
		require.NoError(t, store.Save(ctx, id, snap))

		// Mutating the caller's copy must not leak into the store.
		snap.Grid[0][0] = 0
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.Grid[0][0])

		loaded.Grid[0][0] = -1
		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, again.Grid[0][0])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, id, contractSnapshot(0))
		require.NoError(t, err)

		err = store.Delete(ctx, id)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")

		assert.NoError(t, store.Delete(ctx, id), "Deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + "-1"
		id2 := id + "-2"
		_ = store.Save(ctx, id1, contractSnapshot(0))
		_ = store.Save(ctx, id2, contractSnapshot(1))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
