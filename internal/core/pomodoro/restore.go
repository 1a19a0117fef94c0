package pomodoro

import (
	"time"
)

// RestoreOutcome describes how Restore seeded the engine.
type RestoreOutcome string

const (
	RestoreFresh     RestoreOutcome = "fresh"
	RestoreMalformed RestoreOutcome = "malformed"
	RestoreStale     RestoreOutcome = "stale"
	RestoreIdle      RestoreOutcome = "idle"
	RestoreResumed   RestoreOutcome = "resumed"
	RestoreCompleted RestoreOutcome = "completed"
)

// Restore seeds the engine from a persisted snapshot. It is meant to be called
// once at startup and replaces whatever state the engine held.
//
// A nil snapshot starts fresh from the configured defaults. A snapshot that
// fails validation does the same and returns an error wrapping
// ErrMalformedSnapshot. A snapshot older than the stale window keeps only the
// user preferences. Otherwise the countdown is restored, and a running one is
// caught up by the wall time elapsed since it was saved.
func (engine *Engine) Restore(snapshot *Snapshot) (RestoreOutcome, error) {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	engine.stopTicksLocked()
	engine.cancelAdvanceLocked()

	if snapshot == nil {
		engine.resetToPreferencesLocked(engine.config.Defaults)
		engine.emitStateLocked(CauseRestore)
		return RestoreFresh, nil
	}
	if err := snapshot.Validate(); err != nil {
		engine.resetToPreferencesLocked(engine.config.Defaults)
		engine.emitStateLocked(CauseRestore)
		return RestoreMalformed, err
	}

	elapsed := engine.clock.Now().Sub(snapshot.SavedAt)
	if elapsed > engine.config.StaleAfter {
		engine.resetToPreferencesLocked(snapshot.Preferences())
		engine.emitStateLocked(CauseRestore)
		return RestoreStale, nil
	}
	if elapsed < 0 {
		elapsed = 0
	}

	engine.state = TimerState{
		Mode:                  snapshot.Mode,
		RemainingSeconds:      snapshot.RemainingSeconds,
		TotalSeconds:          snapshot.totalSeconds(),
		CompletedWorkSessions: snapshot.CompletedWorkSessions,
		AutoAdvance:           snapshot.AutoAdvance,
		Durations:             snapshot.Durations,
	}

	if !snapshot.Running {
		if engine.state.RemainingSeconds == 0 {
			// Saved during the auto-advance delay: the completion was already counted.
			engine.switchModeLocked(nextMode(snapshot.Mode, snapshot.CompletedWorkSessions, engine.config.LongBreakEvery))
		}
		engine.emitStateLocked(CauseRestore)
		return RestoreIdle, nil
	}

	remaining := engine.state.RemainingSeconds - int(elapsed/time.Second)
	if remaining > 0 {
		engine.state.RemainingSeconds = remaining
		engine.startLocked()
		engine.emitStateLocked(CauseRestore)
		return RestoreResumed, nil
	}

	engine.state.RemainingSeconds = 0
	engine.state.Running = true
	engine.completeLocked()
	return RestoreCompleted, nil
}
