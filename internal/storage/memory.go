package storage

import (
	"context"
	"sync"

	"tomatoclock/internal/core/pomodoro"
)

// MemoryStore keeps the snapshot in memory. It backs tests and headless runs
// where no directory is writable.
type MemoryStore struct {
	mu       sync.Mutex
	name     string
	snapshot *pomodoro.Snapshot
	// LoadErr and SaveErr, when set, are returned instead of touching the snapshot.
	LoadErr error
	SaveErr error
	saves   int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(name string) *MemoryStore {
	if name == "" {
		name = "memory"
	}
	return &MemoryStore{name: name}
}

// Name identifies the backend.
func (store *MemoryStore) Name() string { return store.name }

// Load returns a copy of the stored snapshot.
func (store *MemoryStore) Load(ctx context.Context) (*pomodoro.Snapshot, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.LoadErr != nil {
		return nil, store.LoadErr
	}
	if store.snapshot == nil {
		return nil, nil
	}
	cp := *store.snapshot
	return &cp, nil
}

// Save stores a copy of snapshot.
func (store *MemoryStore) Save(ctx context.Context, snapshot pomodoro.Snapshot) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.SaveErr != nil {
		return store.SaveErr
	}
	store.snapshot = &snapshot
	store.saves++
	return nil
}

// Saves returns how many successful saves happened.
func (store *MemoryStore) Saves() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.saves
}

var _ SnapshotStore = (*MemoryStore)(nil)
