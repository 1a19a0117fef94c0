package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"tomatoclock/internal/core/model"
)

const (
	historyFileName = "history.db"
	// timestampLayout is fixed-width UTC so that text comparison orders correctly.
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS completions (
	id TEXT PRIMARY KEY,
	mode TEXT NOT NULL,
	next_mode TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL,
	work_sessions INTEGER NOT NULL,
	completed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_completions_completed_at ON completions(completed_at);
`

// HistoryEntry is one finished countdown.
type HistoryEntry struct {
	ID              string     `json:"id"`
	Mode            model.Mode `json:"mode"`
	NextMode        model.Mode `json:"nextMode"`
	DurationSeconds int        `json:"durationSeconds"`
	// WorkSessions is the completed work-session counter after this completion.
	WorkSessions int       `json:"workSessions"`
	CompletedAt  time.Time `json:"completedAt"`
}

// HistoryRepository records completions in SQLite.
type HistoryRepository struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) dir/history.db and applies the schema.
func OpenHistory(ctx context.Context, dir string) (*HistoryRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite3", filepath.Join(dir, historyFileName)+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	repository := NewHistoryRepository(db)
	if err := repository.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repository, nil
}

// NewHistoryRepository wraps an open database. Call Migrate before use.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Migrate creates the completions table.
func (r *HistoryRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, historySchema); err != nil {
		return fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return nil
}

// Close releases the database.
func (r *HistoryRepository) Close() error {
	return r.db.Close()
}

// Record stores entry, assigning an ID when it has none.
func (r *HistoryRepository) Record(ctx context.Context, entry HistoryEntry) (HistoryEntry, error) {
	if !entry.Mode.Valid() {
		return entry, fmt.Errorf("record completion: unknown mode %q", entry.Mode)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CompletedAt.IsZero() {
		entry.CompletedAt = time.Now()
	}

	query := `
		INSERT INTO completions (id, mode, next_mode, duration_seconds, work_sessions, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		string(entry.Mode),
		string(entry.NextMode),
		entry.DurationSeconds,
		entry.WorkSessions,
		entry.CompletedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return entry, fmt.Errorf("failed to record completion: %w", err)
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, mode, next_mode, duration_seconds, work_sessions, completed_at
		FROM completions
		ORDER BY completed_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			entry       HistoryEntry
			mode        string
			next        string
			completedAt string
		)
		if err := rows.Scan(&entry.ID, &mode, &next, &entry.DurationSeconds, &entry.WorkSessions, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		entry.Mode = model.Mode(mode)
		entry.NextMode = model.Mode(next)
		entry.CompletedAt, err = time.Parse(timestampLayout, completedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed_at %q: %w", completedAt, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate completions: %w", err)
	}
	return entries, nil
}

// CountsSince returns the number of completions per mode at or after since.
func (r *HistoryRepository) CountsSince(ctx context.Context, since time.Time) (map[model.Mode]int, error) {
	query := `
		SELECT mode, COUNT(*)
		FROM completions
		WHERE completed_at >= ?
		GROUP BY mode
	`
	rows, err := r.db.QueryContext(ctx, query, since.UTC().Format(timestampLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to count completions: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Mode]int, len(model.Modes))
	for rows.Next() {
		var (
			mode  string
			count int
		)
		if err := rows.Scan(&mode, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[model.Mode(mode)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counts: %w", err)
	}
	return counts, nil
}
