package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/ternlab/pkg/adapters/file"
	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Store implements SnapshotStore
var _ ports.SnapshotStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunSnapshotStoreContract(t, store)
}

func TestFileStore_WritesReadableJSON(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	snap := &domain.Snapshot{
		Size:           1,
		Grid:           [][]int{{1}},
		PosThreshold:   3,
		NegThreshold:   3,
		EntropyHistory: []float64{0},
	}
	require.NoError(t, store.Save(ctx, "glider", snap))

	data, err := os.ReadFile(filepath.Join(dir, "glider.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"pos_threshold": 3`)

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "../escape", `a\b`, "..", "tmp-sneaky"} {
		err := store.Save(ctx, id, &domain.Snapshot{})
		assert.ErrorIs(t, err, file.ErrInvalidID, "id %q", id)
	}
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "does-not-exist"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
