package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"tomatoclock/internal/core/model"
)

// Watch reloads the config file when it is written or replaced and calls
// onChange with the new preferences whenever they differ from the last ones.
// The watcher stops when ctx is done.
func (c *Config) Watch(ctx context.Context, logger *slog.Logger, onChange func(model.Preferences)) error {
	if c.path == "" {
		return fmt.Errorf("watch config: no config path")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go c.watchLoop(ctx, watcher, logger, c.Preferences(), onChange)
	return nil
}

func (c *Config) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, logger *slog.Logger, last model.Preferences, onChange func(model.Preferences)) {
	defer watcher.Close()
	target := filepath.Clean(c.path)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			preferences, err := c.reload()
			if err != nil {
				logger.Warn("config: failed to reload", "path", c.path, "err", err)
				continue
			}
			if preferences == last {
				continue
			}
			last = preferences
			logger.Info("config: preferences changed", "durations", preferences.Durations, "autoAdvance", preferences.AutoAdvance)
			onChange(preferences)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("config: watcher error", "err", err)
		}
	}
}
