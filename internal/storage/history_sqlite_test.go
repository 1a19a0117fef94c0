package storage_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"tomatoclock/internal/core/model"
	"tomatoclock/internal/storage"
)

func setupHistory(t *testing.T) *storage.HistoryRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every pooled connection would otherwise get its own empty in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	repository := storage.NewHistoryRepository(db)
	require.NoError(t, repository.Migrate(context.Background()))
	return repository
}

func TestHistoryRecordAssignsID(t *testing.T) {
	repository := setupHistory(t)

	entry, err := repository.Record(context.Background(), storage.HistoryEntry{
		Mode:            model.ModeWork,
		NextMode:        model.ModeShortBreak,
		DurationSeconds: 1500,
		WorkSessions:    1,
		CompletedAt:     time.Date(2026, 3, 14, 9, 25, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	require.NotEmpty(t, entry.ID)
}

func TestHistoryRecordRejectsUnknownMode(t *testing.T) {
	repository := setupHistory(t)

	_, err := repository.Record(context.Background(), storage.HistoryEntry{Mode: "nap"})

	require.Error(t, err)
}

func TestHistoryRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	repository := setupHistory(t)
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, mode := range []model.Mode{model.ModeWork, model.ModeShortBreak, model.ModeWork} {
		_, err := repository.Record(ctx, storage.HistoryEntry{
			Mode:            mode,
			NextMode:        model.ModeWork,
			DurationSeconds: 60,
			CompletedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	entries, err := repository.Recent(ctx, 2)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, base.Add(2*time.Minute), entries[0].CompletedAt)
	require.Equal(t, model.ModeShortBreak, entries[1].Mode)
}

func TestHistoryCountsSince(t *testing.T) {
	ctx := context.Background()
	repository := setupHistory(t)
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	records := []storage.HistoryEntry{
		{Mode: model.ModeWork, CompletedAt: day.Add(-time.Hour)},
		{Mode: model.ModeWork, CompletedAt: day.Add(9 * time.Hour)},
		{Mode: model.ModeWork, CompletedAt: day.Add(10 * time.Hour)},
		{Mode: model.ModeLongBreak, CompletedAt: day.Add(11 * time.Hour)},
	}
	for _, record := range records {
		_, err := repository.Record(ctx, record)
		require.NoError(t, err)
	}

	counts, err := repository.CountsSince(ctx, day)

	require.NoError(t, err)
	require.Equal(t, 2, counts[model.ModeWork])
	require.Equal(t, 1, counts[model.ModeLongBreak])
	require.Zero(t, counts[model.ModeShortBreak])
}

func TestOpenHistoryCreatesDatabase(t *testing.T) {
	dir := t.TempDir()

	repository, err := storage.OpenHistory(context.Background(), dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })

	entries, err := repository.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Empty(t, entries)
}
