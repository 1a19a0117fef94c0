package pomodoro

import (
	"fmt"
	"time"

	"tomatoclock/internal/core/model"
)

// TimerState is a read-only copy of the engine's countdown position.
type TimerState struct {
	Mode                  model.Mode      `json:"mode"`
	RemainingSeconds      int             `json:"remainingSeconds"`
	TotalSeconds          int             `json:"totalSeconds"`
	Running               bool            `json:"running"`
	CompletedWorkSessions int             `json:"completedWorkSessions"`
	AutoAdvance           bool            `json:"autoAdvance"`
	Durations             model.Durations `json:"durations"`
}

// Progress returns the elapsed fraction of the current countdown in [0, 1].
func (state TimerState) Progress() float64 {
	if state.TotalSeconds <= 0 {
		return 0
	}
	progress := float64(state.TotalSeconds-state.RemainingSeconds) / float64(state.TotalSeconds)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

// Clock formats the remaining time as mm:ss.
func (state TimerState) Clock() string {
	return FormatClock(state.RemainingSeconds)
}

// FormatClock formats seconds as mm:ss, clamping negatives to zero.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Snapshot is the persisted projection of TimerState.
type Snapshot struct {
	CompletedWorkSessions int
	Durations             model.Durations
	AutoAdvance           bool
	Mode                  model.Mode
	RemainingSeconds      int
	// TotalSeconds is zero when the record predates it; restore recomputes it from Durations.
	TotalSeconds int
	Running      bool
	SavedAt      time.Time
}

// Validate checks the snapshot fields and reports the first problem found.
func (snapshot Snapshot) Validate() error {
	if !snapshot.Mode.Valid() {
		return malformed("mode %q", snapshot.Mode)
	}
	if !snapshot.Durations.Valid() {
		return malformed("durations %d/%d/%d", snapshot.Durations.Work, snapshot.Durations.ShortBreak, snapshot.Durations.LongBreak)
	}
	if snapshot.CompletedWorkSessions < 0 {
		return malformed("completed work sessions %d", snapshot.CompletedWorkSessions)
	}
	if snapshot.RemainingSeconds < 0 {
		return malformed("remaining seconds %d", snapshot.RemainingSeconds)
	}
	if snapshot.TotalSeconds < 0 {
		return malformed("total seconds %d", snapshot.TotalSeconds)
	}
	if snapshot.RemainingSeconds > snapshot.totalSeconds() {
		return malformed("remaining %ds exceeds total %ds", snapshot.RemainingSeconds, snapshot.totalSeconds())
	}
	if snapshot.SavedAt.IsZero() {
		return malformed("missing savedAt")
	}
	return nil
}

// Preferences returns the user preferences carried by the snapshot.
func (snapshot Snapshot) Preferences() model.Preferences {
	return model.Preferences{
		Durations:   snapshot.Durations,
		AutoAdvance: snapshot.AutoAdvance,
	}
}

func (snapshot Snapshot) totalSeconds() int {
	if snapshot.TotalSeconds > 0 {
		return snapshot.TotalSeconds
	}
	return snapshot.Durations.Seconds(snapshot.Mode)
}
