package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"tomatoclock/internal/core/pomodoro"
)

const sessionFileName = "session.json"

// SessionStore is the session-scoped fallback backend. It lives in the
// per-login runtime directory, which the OS clears on logout or reboot.
type SessionStore struct {
	path string
}

// NewSessionStore stores the snapshot in dir/session.json.
func NewSessionStore(dir string) *SessionStore {
	return &SessionStore{path: filepath.Join(dir, sessionFileName)}
}

// Name identifies the backend.
func (store *SessionStore) Name() string {
	return "session"
}

// Path returns the file location.
func (store *SessionStore) Path() string {
	return store.path
}

// Load reads the snapshot. A missing file is not an error.
func (store *SessionStore) Load(ctx context.Context) (*pomodoro.Snapshot, error) {
	data, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &pomodoro.PersistenceError{Op: "read", Backend: store.Name(), Err: err}
	}

	snapshot, err := DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", store.path, err)
	}
	return snapshot, nil
}

// Save writes the snapshot atomically, readable only by the current user.
func (store *SessionStore) Save(ctx context.Context, snapshot pomodoro.Snapshot) error {
	data, err := EncodeJSON(snapshot)
	if err != nil {
		return err
	}
	if err := writeAtomic(store.path, data, 0o700, 0o600); err != nil {
		return &pomodoro.PersistenceError{Op: "write", Backend: store.Name(), Err: err}
	}
	return nil
}

// SessionDir returns the session-scoped directory for appName:
// $XDG_RUNTIME_DIR/appName when set, otherwise a per-user directory under os.TempDir.
func SessionDir(appName string) string {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, appName)
	}
	return filepath.Join(os.TempDir(), appName+"-"+strconv.Itoa(os.Getuid()))
}
