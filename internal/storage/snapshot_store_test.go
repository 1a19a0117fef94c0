package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tomatoclock/internal/core/model"
	"tomatoclock/internal/core/pomodoro"
	"tomatoclock/internal/storage"
)

func sampleSnapshot(savedAt time.Time) pomodoro.Snapshot {
	return pomodoro.Snapshot{
		CompletedWorkSessions: 2,
		Durations:             model.Durations{Work: 30, ShortBreak: 6, LongBreak: 20},
		AutoAdvance:           true,
		Mode:                  model.ModeShortBreak,
		RemainingSeconds:      200,
		TotalSeconds:          360,
		Running:               true,
		SavedAt:               savedAt,
	}
}

func TestFileStoresRoundTrip(t *testing.T) {
	ctx := context.Background()
	savedAt := time.UnixMilli(1767000000123)

	stores := map[string]storage.SnapshotStore{
		"yaml":    storage.NewYAMLStore(t.TempDir()),
		"session": storage.NewSessionStore(filepath.Join(t.TempDir(), "nested")),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			loaded, err := store.Load(ctx)
			require.NoError(t, err)
			require.Nil(t, loaded)

			require.NoError(t, store.Save(ctx, sampleSnapshot(savedAt)))

			loaded, err = store.Load(ctx)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			require.True(t, savedAt.Equal(loaded.SavedAt))
			loaded.SavedAt = savedAt
			require.Equal(t, sampleSnapshot(savedAt), *loaded)
		})
	}
}

func TestYAMLStoreUsesPersistedLayout(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewYAMLStore(dir)
	require.NoError(t, store.Save(context.Background(), sampleSnapshot(time.UnixMilli(1767000000000))))

	raw, err := os.ReadFile(filepath.Join(dir, "state.yaml"))
	require.NoError(t, err)
	for _, key := range []string{
		"completedWorkSessions: 2", "workDuration: 30", "shortBreakDuration: 6",
		"longBreakDuration: 20", "autoAdvance: true", "mode: short-break",
		"remainingSeconds: 200", "running: true", "savedAt: 1767000000000",
	} {
		require.Contains(t, string(raw), key)
	}
}

func TestYAMLStoreToleratesMissingTotal(t *testing.T) {
	dir := t.TempDir()
	content := `completedWorkSessions: 0
workDuration: 25
shortBreakDuration: 5
longBreakDuration: 15
autoAdvance: false
mode: work
remainingSeconds: 600
running: false
savedAt: 1767000000000
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.yaml"), []byte(content), 0o644))

	loaded, err := storage.NewYAMLStore(dir).Load(context.Background())
	require.NoError(t, err)
	require.Zero(t, loaded.TotalSeconds)
	require.Equal(t, 600, loaded.RemainingSeconds)
}

func TestMalformedRecordsAreRejected(t *testing.T) {
	cases := map[string]string{
		"not yaml":        "{{{ nope",
		"missing mode":    "completedWorkSessions: 0\nworkDuration: 25\nshortBreakDuration: 5\nlongBreakDuration: 15\nautoAdvance: false\nremainingSeconds: 10\nrunning: false\nsavedAt: 1\n",
		"unknown mode":    "completedWorkSessions: 0\nworkDuration: 25\nshortBreakDuration: 5\nlongBreakDuration: 15\nautoAdvance: false\nmode: siesta\nremainingSeconds: 10\nrunning: false\nsavedAt: 1\n",
		"zero duration":   "completedWorkSessions: 0\nworkDuration: 0\nshortBreakDuration: 5\nlongBreakDuration: 15\nautoAdvance: false\nmode: work\nremainingSeconds: 0\nrunning: false\nsavedAt: 1\n",
		"missing savedAt": "completedWorkSessions: 0\nworkDuration: 25\nshortBreakDuration: 5\nlongBreakDuration: 15\nautoAdvance: false\nmode: work\nremainingSeconds: 10\nrunning: false\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "state.yaml"), []byte(content), 0o644))

			loaded, err := storage.NewYAMLStore(dir).Load(context.Background())
			require.ErrorIs(t, err, pomodoro.ErrMalformedSnapshot)
			require.Nil(t, loaded)
		})
	}
}

func TestSessionStoreCorruptJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.json"), []byte(`{"mode":`), 0o600))

	_, err := storage.NewSessionStore(dir).Load(context.Background())
	require.ErrorIs(t, err, pomodoro.ErrMalformedSnapshot)
}

func TestFileStoreWriteFailureIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// The store directory cannot be created beneath a regular file.
	err := storage.NewYAMLStore(filepath.Join(blocker, "app")).Save(context.Background(), sampleSnapshot(time.Now()))

	var persistenceErr *pomodoro.PersistenceError
	require.True(t, errors.As(err, &persistenceErr))
	require.Equal(t, "write", persistenceErr.Op)
	require.Equal(t, "durable", persistenceErr.Backend)
}

func TestSessionDirPrefersRuntimeDir(t *testing.T) {
	runtimeDir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	require.Equal(t, filepath.Join(runtimeDir, "tomatoclock"), storage.SessionDir("tomatoclock"))
}
