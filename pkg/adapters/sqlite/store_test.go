package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/ternlab/pkg/adapters/sqlite"
	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "snapshots.db"))
	ports.RunSnapshotStoreContract(t, store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	ctx := context.Background()

	first, err := sqlite.Open(path)
	require.NoError(t, err)
	snap := &domain.Snapshot{
		Size:           2,
		Grid:           [][]int{{1, 0}, {0, -1}},
		PosThreshold:   4,
		NegThreshold:   2,
		Step:           0,
		EntropyHistory: []float64{1.5},
	}
	require.NoError(t, first.Save(ctx, "persisted", snap))
	require.NoError(t, first.Close())

	second := openStore(t, path)
	loaded, err := second.Load(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)
}
