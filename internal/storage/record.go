// Package storage persists timer snapshots and the completion history.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tomatoclock/internal/core/model"
	"tomatoclock/internal/core/pomodoro"
)

// SnapshotStore is a backend for the persisted timer record.
type SnapshotStore interface {
	// Load returns the stored snapshot, or nil when nothing has been saved yet.
	Load(ctx context.Context) (*pomodoro.Snapshot, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snapshot pomodoro.Snapshot) error
	// Name identifies the backend in logs and errors.
	Name() string
}

// record is the on-disk layout shared by every snapshot backend.
// Pointer fields distinguish a missing key from a zero value.
type record struct {
	CompletedWorkSessions *int    `yaml:"completedWorkSessions" json:"completedWorkSessions"`
	WorkDuration          *int    `yaml:"workDuration" json:"workDuration"`
	ShortBreakDuration    *int    `yaml:"shortBreakDuration" json:"shortBreakDuration"`
	LongBreakDuration     *int    `yaml:"longBreakDuration" json:"longBreakDuration"`
	AutoAdvance           *bool   `yaml:"autoAdvance" json:"autoAdvance"`
	Mode                  *string `yaml:"mode" json:"mode"`
	RemainingSeconds      *int    `yaml:"remainingSeconds" json:"remainingSeconds"`
	TotalSeconds          *int    `yaml:"totalSeconds,omitempty" json:"totalSeconds,omitempty"`
	Running               *bool   `yaml:"running" json:"running"`
	SavedAt               *int64  `yaml:"savedAt" json:"savedAt"`
}

func newRecord(snapshot pomodoro.Snapshot) record {
	mode := string(snapshot.Mode)
	savedAt := snapshot.SavedAt.UnixMilli()
	return record{
		CompletedWorkSessions: &snapshot.CompletedWorkSessions,
		WorkDuration:          &snapshot.Durations.Work,
		ShortBreakDuration:    &snapshot.Durations.ShortBreak,
		LongBreakDuration:     &snapshot.Durations.LongBreak,
		AutoAdvance:           &snapshot.AutoAdvance,
		Mode:                  &mode,
		RemainingSeconds:      &snapshot.RemainingSeconds,
		TotalSeconds:          &snapshot.TotalSeconds,
		Running:               &snapshot.Running,
		SavedAt:               &savedAt,
	}
}

// snapshot converts the record, rejecting missing or invalid fields.
func (rec record) snapshot() (*pomodoro.Snapshot, error) {
	missing := func(key string) error {
		return fmt.Errorf("%w: missing %s", pomodoro.ErrMalformedSnapshot, key)
	}
	switch {
	case rec.CompletedWorkSessions == nil:
		return nil, missing("completedWorkSessions")
	case rec.WorkDuration == nil:
		return nil, missing("workDuration")
	case rec.ShortBreakDuration == nil:
		return nil, missing("shortBreakDuration")
	case rec.LongBreakDuration == nil:
		return nil, missing("longBreakDuration")
	case rec.AutoAdvance == nil:
		return nil, missing("autoAdvance")
	case rec.Mode == nil:
		return nil, missing("mode")
	case rec.RemainingSeconds == nil:
		return nil, missing("remainingSeconds")
	case rec.Running == nil:
		return nil, missing("running")
	case rec.SavedAt == nil:
		return nil, missing("savedAt")
	}

	mode, err := model.ParseMode(*rec.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pomodoro.ErrMalformedSnapshot, err)
	}

	snapshot := &pomodoro.Snapshot{
		CompletedWorkSessions: *rec.CompletedWorkSessions,
		Durations: model.Durations{
			Work:       *rec.WorkDuration,
			ShortBreak: *rec.ShortBreakDuration,
			LongBreak:  *rec.LongBreakDuration,
		},
		AutoAdvance:      *rec.AutoAdvance,
		Mode:             mode,
		RemainingSeconds: *rec.RemainingSeconds,
		Running:          *rec.Running,
		SavedAt:          time.UnixMilli(*rec.SavedAt),
	}
	if rec.TotalSeconds != nil {
		snapshot.TotalSeconds = *rec.TotalSeconds
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// EncodeJSON renders snapshot in the persisted record layout.
func EncodeJSON(snapshot pomodoro.Snapshot) ([]byte, error) {
	data, err := json.Marshal(newRecord(snapshot))
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot json: %w", err)
	}
	return data, nil
}

// DecodeJSON parses a record in the persisted layout and validates it.
func DecodeJSON(data []byte) (*pomodoro.Snapshot, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", pomodoro.ErrMalformedSnapshot, err)
	}
	return rec.snapshot()
}
