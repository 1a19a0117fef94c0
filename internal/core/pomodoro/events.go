package pomodoro

import (
	"time"

	"tomatoclock/internal/core/model"
)

// EventType defines the type of engine event.
type EventType string

const (
	EventStateChanged EventType = "state_changed"
	EventCompleted    EventType = "completed"
)

// Cause names the operation that produced a state change.
type Cause string

const (
	CauseStart       Cause = "start"
	CausePause       Cause = "pause"
	CauseReset       Cause = "reset"
	CauseSwitchMode  Cause = "switch_mode"
	CauseTick        Cause = "tick"
	CauseResume      Cause = "resume"
	CauseDuration    Cause = "duration"
	CauseAutoAdvance Cause = "auto_advance"
	CauseSettings    Cause = "settings"
	CauseRestore     Cause = "restore"
	CauseCompleted   Cause = "completed"
)

// Event represents an engine update for observers.
type Event struct {
	Type     EventType
	Cause    Cause
	State    TimerState
	Mode     model.Mode
	NextMode model.Mode
	At       time.Time
}
