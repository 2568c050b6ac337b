package game

import (
	"context"
	"sync"
)

// SnapshotStore persists player snapshots between restarts.
type SnapshotStore interface {
	// Load returns the saved snapshot for playerID. ok is false when the
	// player has never been saved.
	Load(ctx context.Context, playerID string) (snap Snapshot, ok bool, err error)
	Save(ctx context.Context, playerID string, snap Snapshot) error
}

// MemorySnapshotStore is an in-memory SnapshotStore. State is lost on restart.
type MemorySnapshotStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

// NewMemorySnapshotStore creates a new in-memory snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snaps: make(map[string]Snapshot)}
}

func (m *MemorySnapshotStore) Load(_ context.Context, playerID string) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[playerID]
	if !ok {
		return Snapshot{}, false, nil
	}
	snap.State = snap.State.clone()
	return snap, true, nil
}

func (m *MemorySnapshotStore) Save(_ context.Context, playerID string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.State = snap.State.clone()
	m.snaps[playerID] = snap
	return nil
}
