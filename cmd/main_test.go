package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"tomatoclock/internal/config"
	"tomatoclock/internal/core/model"
	"tomatoclock/internal/core/pomodoro"
	"tomatoclock/internal/storage"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir+"/config")
	t.Setenv("XDG_RUNTIME_DIR", dir+"/run")
	t.Setenv("HOME", dir)
	t.Setenv("TOMATOCLOCK_STORAGE_DIR", dir+"/data")
	t.Setenv("TOMATOCLOCK_STORAGE_SESSION_DIR", dir+"/session")
	t.Setenv("TOMATOCLOCK_LOG_LEVEL", "error")

	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })
	return dir
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	isolate(t)

	require.Equal(t, "tomatoclock dev (none)\n", execute(t, "version"))
}

func TestStatusWithoutSavedState(t *testing.T) {
	isolate(t)

	out := execute(t, "status")

	require.Contains(t, out, "Mode:       Work")
	require.Contains(t, out, "Remaining:  25:00 of 25:00")
	require.Contains(t, out, "Running:    no")
	require.Contains(t, out, "No saved state; showing defaults.")
}

func TestStatusProjectsRunningSnapshot(t *testing.T) {
	dir := isolate(t)
	snapshot := pomodoro.Snapshot{
		CompletedWorkSessions: 2,
		Durations:             model.DefaultDurations(),
		Mode:                  model.ModeShortBreak,
		RemainingSeconds:      240,
		TotalSeconds:          300,
		Running:               true,
		SavedAt:               time.Now().Add(-time.Minute),
	}
	require.NoError(t, storage.NewYAMLStore(dir+"/data").Save(context.Background(), snapshot))

	out := execute(t, "status")

	require.Contains(t, out, "Mode:       Short Break")
	require.Contains(t, out, "Running:    yes")
	require.Contains(t, out, "2 work sessions completed")
	require.Regexp(t, `Remaining:  0[23]:\d\d of 05:00`, out)
}

func TestProjectSnapshotStale(t *testing.T) {
	settings := config.Settings{Engine: model.DefaultEngineConfig()}
	snapshot := &pomodoro.Snapshot{
		CompletedWorkSessions: 3,
		Durations:             model.Durations{Work: 40, ShortBreak: 5, LongBreak: 15},
		Mode:                  model.ModeWork,
		RemainingSeconds:      100,
		Running:               true,
		SavedAt:               time.Now().Add(-time.Hour),
	}

	state, outcome := projectSnapshot(settings, snapshot)

	require.Equal(t, pomodoro.RestoreStale, outcome)
	require.Equal(t, 2400, state.RemainingSeconds)
	require.Zero(t, state.CompletedWorkSessions)
}

func TestHistoryCommand(t *testing.T) {
	dir := isolate(t)
	ctx := context.Background()
	history, err := storage.OpenHistory(ctx, dir+"/data")
	require.NoError(t, err)
	_, err = history.Record(ctx, storage.HistoryEntry{
		Mode:            model.ModeWork,
		NextMode:        model.ModeShortBreak,
		DurationSeconds: 1500,
		WorkSessions:    1,
		CompletedAt:     time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, history.Close())

	out := execute(t, "history", "--limit", "5")

	require.Contains(t, out, "Today")
	require.Regexp(t, `Work\s+1\n`, out)
	require.Regexp(t, `Short Break\s+0\n`, out)
	require.Contains(t, out, "next: Short Break")
}

func TestHistoryCommandRejectsBadLimit(t *testing.T) {
	isolate(t)
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"history", "--limit", "0"})

	require.ErrorContains(t, cmd.ExecuteContext(context.Background()), "--limit must be positive")
}

func TestPrintHistoryEmpty(t *testing.T) {
	isolate(t)
	var out bytes.Buffer

	printHistory(&out, map[model.Mode]int{}, nil)

	require.Contains(t, out.String(), "No completed sessions yet.")
}

func TestStartOfDay(t *testing.T) {
	now := time.Date(2024, 3, 9, 17, 45, 12, 0, time.UTC)

	require.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), startOfDay(now))
}
