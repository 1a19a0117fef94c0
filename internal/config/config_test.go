package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tomatoclock/internal/core/model"
	"tomatoclock/internal/logging"
)

// isolate points every lookup directory at a temp dir and returns the config dir.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(root, "run"))
	t.Setenv("HOME", root)
	for _, key := range []string{
		"TOMATOCLOCK_DURATIONS_WORK", "TOMATOCLOCK_AUTO_ADVANCE", "TOMATOCLOCK_HTTP_ADDR",
		"TOMATOCLOCK_TRACING_EXPORTER", "TOMATOCLOCK_TIMER_PERSIST_EVERY",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return filepath.Join(root, "config", AppName)
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "config.yaml"), cfg.Path())

	settings, err := cfg.Settings()
	require.NoError(t, err)
	require.Equal(t, model.DefaultEngineConfig(), settings.Engine)
	require.Equal(t, DefaultPersistEvery, settings.PersistEvery)
	require.Equal(t, DefaultRateLimit, settings.HTTPRateLimit)
	require.Equal(t, dir, settings.StorageDir)
	require.Equal(t, filepath.Join(filepath.Dir(filepath.Dir(dir)), "run", AppName), settings.SessionDir)
	require.Empty(t, settings.HTTPAddr)
	require.Equal(t, "none", settings.TracingExporter)
	require.True(t, settings.Notifications)
	require.True(t, settings.Sound)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := `durations:
  work: 50
  short_break: 10
auto_advance: true
timer:
  auto_advance_delay: 5s
http:
  addr: 127.0.0.1:8765
notifications:
  sound: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	t.Setenv("TOMATOCLOCK_DURATIONS_WORK", "45")

	cfg, err := Load("")
	require.NoError(t, err)
	settings, err := cfg.Settings()
	require.NoError(t, err)

	require.Equal(t, model.Durations{Work: 45, ShortBreak: 10, LongBreak: 15}, settings.Engine.Defaults.Durations)
	require.True(t, settings.Engine.Defaults.AutoAdvance)
	require.Equal(t, 5*time.Second, settings.Engine.AutoAdvanceDelay)
	require.Equal(t, "127.0.0.1:8765", settings.HTTPAddr)
	require.False(t, settings.Sound)
	require.True(t, settings.Notifications)
}

func TestInvalidDurationsFallBackToDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Set("durations.long_break", 0)

	require.Equal(t, model.DefaultDurations(), cfg.Preferences().Durations)
}

func TestExplicitPathMustExist(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
}

func TestInvalidTracingExporter(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Set("tracing.exporter", "zipkin")
	_, err = cfg.Settings()

	require.ErrorContains(t, err, "invalid tracing exporter")
}

func TestWatchReportsChangedPreferences(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("durations:\n  work: 25\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var (
		mu      sync.Mutex
		changes []model.Preferences
	)
	require.NoError(t, cfg.Watch(ctx, logging.Discard(), func(preferences model.Preferences) {
		mu.Lock()
		changes = append(changes, preferences)
		mu.Unlock()
	}))

	require.NoError(t, os.WriteFile(path, []byte("durations:\n  work: 40\nauto_advance: true\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		if len(changes) == 0 {
			return false
		}
		last := changes[len(changes)-1]
		return last.Durations.Work == 40 && last.AutoAdvance
	}, 2*time.Second, 10*time.Millisecond)
}
