package storage

import (
	"context"
	"errors"
	"fmt"

	"tomatoclock/internal/core/pomodoro"
)

// Redundant writes every snapshot to all backends and loads the newest valid one,
// so any single surviving backend is enough for full recovery.
type Redundant struct {
	stores []SnapshotStore
}

// NewRedundant combines stores in priority order; ties on SavedAt go to the first.
func NewRedundant(stores ...SnapshotStore) *Redundant {
	return &Redundant{stores: stores}
}

// Name identifies the backend.
func (redundant *Redundant) Name() string {
	return "redundant"
}

// Save writes to every backend. It fails only when no backend accepted the write;
// partial failures are still reported through the returned error's joined causes.
func (redundant *Redundant) Save(ctx context.Context, snapshot pomodoro.Snapshot) error {
	var errs []error
	saved := 0
	for _, store := range redundant.stores {
		if err := store.Save(ctx, snapshot); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
			continue
		}
		saved++
	}
	if len(errs) == 0 {
		return nil
	}
	if saved > 0 {
		return &PartialSaveError{Err: errors.Join(errs...)}
	}
	return errors.Join(errs...)
}

// Load returns the newest valid snapshot across backends. Errors are returned
// only when no backend produced a snapshot.
func (redundant *Redundant) Load(ctx context.Context) (*pomodoro.Snapshot, error) {
	var (
		best *pomodoro.Snapshot
		errs []error
	)
	for _, store := range redundant.stores {
		snapshot, err := store.Load(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
			continue
		}
		if snapshot == nil {
			continue
		}
		if best == nil || snapshot.SavedAt.After(best.SavedAt) {
			best = snapshot
		}
	}
	if best != nil {
		return best, nil
	}
	return nil, errors.Join(errs...)
}

// PartialSaveError reports backends that failed while at least one succeeded.
type PartialSaveError struct {
	Err error
}

func (err *PartialSaveError) Error() string {
	return "partial save: " + err.Err.Error()
}

// Unwrap exposes the joined backend errors.
func (err *PartialSaveError) Unwrap() error {
	return err.Err
}

var (
	_ SnapshotStore = (*Redundant)(nil)
	_ SnapshotStore = (*YAMLStore)(nil)
	_ SnapshotStore = (*SessionStore)(nil)
)
