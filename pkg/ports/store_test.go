package ports_test

import (
	"context"
	"testing"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/ports"
)

// MockStore is a minimal in-memory implementation of SnapshotStore for testing purposes.
type MockStore struct {
	data map[string]*domain.Snapshot
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Snapshot),
	}
}

func (m *MockStore) Save(ctx context.Context, id string, snap *domain.Snapshot) error {
	// Deep copy to simulate serialization
	m.data[id] = snap.Clone()
	return nil
}

func (m *MockStore) Load(ctx context.Context, id string) (*domain.Snapshot, error) {
	snap, ok := m.data[id]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	delete(m.data, id)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestSnapshotStore_Contract(t *testing.T) {
	// The mock doubles as a sanity check of the contract suite itself.
	ports.RunSnapshotStoreContract(t, NewMockStore())
}
