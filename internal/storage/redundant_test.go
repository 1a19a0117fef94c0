package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tomatoclock/internal/core/pomodoro"
	"tomatoclock/internal/storage"
)

func TestRedundantSavesToEveryBackend(t *testing.T) {
	durable := storage.NewMemoryStore("durable")
	session := storage.NewMemoryStore("session")
	redundant := storage.NewRedundant(durable, session)

	require.NoError(t, redundant.Save(context.Background(), sampleSnapshot(time.Now())))

	require.Equal(t, 1, durable.Saves())
	require.Equal(t, 1, session.Saves())
}

func TestRedundantSurvivesOneFailingBackend(t *testing.T) {
	ctx := context.Background()
	durable := storage.NewMemoryStore("durable")
	durable.SaveErr = errors.New("quota exceeded")
	session := storage.NewMemoryStore("session")
	redundant := storage.NewRedundant(durable, session)

	err := redundant.Save(ctx, sampleSnapshot(time.UnixMilli(1000)))
	var partial *storage.PartialSaveError
	require.ErrorAs(t, err, &partial)
	require.ErrorContains(t, err, "quota exceeded")

	durable.LoadErr = errors.New("storage disabled")
	loaded, err := redundant.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 200, loaded.RemainingSeconds)
}

func TestRedundantAllBackendsFailing(t *testing.T) {
	durable := storage.NewMemoryStore("durable")
	durable.SaveErr = errors.New("disk full")
	session := storage.NewMemoryStore("session")
	session.SaveErr = errors.New("read-only")

	err := storage.NewRedundant(durable, session).Save(context.Background(), sampleSnapshot(time.Now()))

	require.Error(t, err)
	var partial *storage.PartialSaveError
	require.False(t, errors.As(err, &partial))
}

func TestRedundantLoadsNewestSnapshot(t *testing.T) {
	ctx := context.Background()
	durable := storage.NewMemoryStore("durable")
	session := storage.NewMemoryStore("session")

	older := sampleSnapshot(time.UnixMilli(1000))
	newer := sampleSnapshot(time.UnixMilli(5000))
	newer.RemainingSeconds = 100
	require.NoError(t, durable.Save(ctx, older))
	require.NoError(t, session.Save(ctx, newer))

	loaded, err := storage.NewRedundant(durable, session).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 100, loaded.RemainingSeconds)
}

func TestRedundantLoadEmptyAndMalformed(t *testing.T) {
	ctx := context.Background()

	loaded, err := storage.NewRedundant(storage.NewMemoryStore("a"), storage.NewMemoryStore("b")).Load(ctx)
	require.NoError(t, err)
	require.Nil(t, loaded)

	broken := storage.NewMemoryStore("broken")
	broken.LoadErr = pomodoro.ErrMalformedSnapshot
	loaded, err = storage.NewRedundant(broken, storage.NewMemoryStore("empty")).Load(ctx)
	require.ErrorIs(t, err, pomodoro.ErrMalformedSnapshot)
	require.Nil(t, loaded)
}
