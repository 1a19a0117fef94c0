package model

import (
	"fmt"
	"time"
)

// Mode identifies one of the Pomodoro countdown variants.
type Mode string

const (
	ModeWork       Mode = "work"
	ModeShortBreak Mode = "short-break"
	ModeLongBreak  Mode = "long-break"
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeWork, ModeShortBreak, ModeLongBreak}

// ParseMode converts a string into a Mode.
// Underscore spellings ("short_break") are accepted for config files and URLs.
func ParseMode(value string) (Mode, error) {
	switch value {
	case string(ModeWork):
		return ModeWork, nil
	case string(ModeShortBreak), "short_break":
		return ModeShortBreak, nil
	case string(ModeLongBreak), "long_break":
		return ModeLongBreak, nil
	}
	return "", fmt.Errorf("unknown mode %q", value)
}

// Valid reports whether mode is one of the known variants.
func (mode Mode) Valid() bool {
	switch mode {
	case ModeWork, ModeShortBreak, ModeLongBreak:
		return true
	}
	return false
}

// Label returns the fixed display label of the mode.
func (mode Mode) Label() string {
	switch mode {
	case ModeWork:
		return "Work"
	case ModeShortBreak:
		return "Short Break"
	case ModeLongBreak:
		return "Long Break"
	default:
		return string(mode)
	}
}

// IsBreak reports whether mode is one of the break variants.
func (mode Mode) IsBreak() bool {
	return mode == ModeShortBreak || mode == ModeLongBreak
}

// Durations holds the configured length of every mode in whole minutes.
type Durations struct {
	Work       int `json:"work"`
	ShortBreak int `json:"shortBreak"`
	LongBreak  int `json:"longBreak"`
}

// DefaultDurations returns the classic 25/5/15 cycle.
func DefaultDurations() Durations {
	return Durations{
		Work:       25,
		ShortBreak: 5,
		LongBreak:  15,
	}
}

// Minutes returns the configured minutes for mode.
func (durations Durations) Minutes(mode Mode) int {
	switch mode {
	case ModeWork:
		return durations.Work
	case ModeShortBreak:
		return durations.ShortBreak
	case ModeLongBreak:
		return durations.LongBreak
	default:
		return 0
	}
}

// Seconds returns the configured length of mode in seconds.
func (durations Durations) Seconds(mode Mode) int {
	return durations.Minutes(mode) * 60
}

// With returns a copy with the minutes of mode replaced.
func (durations Durations) With(mode Mode, minutes int) Durations {
	switch mode {
	case ModeWork:
		durations.Work = minutes
	case ModeShortBreak:
		durations.ShortBreak = minutes
	case ModeLongBreak:
		durations.LongBreak = minutes
	}
	return durations
}

// Valid reports whether every duration is a positive number of minutes.
func (durations Durations) Valid() bool {
	return durations.Work > 0 && durations.ShortBreak > 0 && durations.LongBreak > 0
}

// Preferences are the user choices that survive a discarded countdown.
type Preferences struct {
	Durations   Durations
	AutoAdvance bool
}

// DefaultPreferences returns preferences used when nothing is configured.
func DefaultPreferences() Preferences {
	return Preferences{Durations: DefaultDurations()}
}

// EngineConfig contains runtime settings for the Pomodoro engine.
type EngineConfig struct {
	Defaults Preferences

	TickInterval     time.Duration
	AutoAdvanceDelay time.Duration
	StaleAfter       time.Duration
	LongBreakEvery   int
}

// DefaultEngineConfig returns the standard timing constants.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Defaults:         DefaultPreferences(),
		TickInterval:     time.Second,
		AutoAdvanceDelay: 3 * time.Second,
		StaleAfter:       5 * time.Minute,
		LongBreakEvery:   4,
	}
}
