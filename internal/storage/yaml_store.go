package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"tomatoclock/internal/core/pomodoro"
)

const stateFileName = "state.yaml"

// YAMLStore is the durable snapshot backend: a YAML file in the user's config directory.
type YAMLStore struct {
	path string
}

// NewYAMLStore stores the snapshot in dir/state.yaml.
func NewYAMLStore(dir string) *YAMLStore {
	return &YAMLStore{path: filepath.Join(dir, stateFileName)}
}

// Name identifies the backend.
func (store *YAMLStore) Name() string {
	return "durable"
}

// Path returns the file location.
func (store *YAMLStore) Path() string {
	return store.path
}

// Load reads the snapshot. A missing file is not an error.
func (store *YAMLStore) Load(ctx context.Context) (*pomodoro.Snapshot, error) {
	rawData, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &pomodoro.PersistenceError{Op: "read", Backend: store.Name(), Err: err}
	}

	var fileData record
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", pomodoro.ErrMalformedSnapshot, store.path, err)
	}
	return fileData.snapshot()
}

// Save writes the snapshot atomically.
func (store *YAMLStore) Save(ctx context.Context, snapshot pomodoro.Snapshot) error {
	serialized, err := yaml.Marshal(newRecord(snapshot))
	if err != nil {
		return fmt.Errorf("marshal snapshot yaml: %w", err)
	}
	if err := writeAtomic(store.path, serialized, 0o755, 0o644); err != nil {
		return &pomodoro.PersistenceError{Op: "write", Backend: store.Name(), Err: err}
	}
	return nil
}

// DefaultDir returns the durable storage directory for appName.
func DefaultDir(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName), nil
}

func writeAtomic(path string, data []byte, dirPerm, filePerm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, filePerm); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}
