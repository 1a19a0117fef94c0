// Package preferences implements the duration and auto-advance editor.
package preferences

import (
	"strconv"
	"strings"

	"tomatoclock/internal/core/model"
)

// Form holds the editable preference values as entered.
type Form struct {
	Work        string
	ShortBreak  string
	LongBreak   string
	AutoAdvance bool
}

// FormFrom renders preferences into form values.
func FormFrom(preferences model.Preferences) Form {
	return Form{
		Work:        strconv.Itoa(preferences.Durations.Work),
		ShortBreak:  strconv.Itoa(preferences.Durations.ShortBreak),
		LongBreak:   strconv.Itoa(preferences.Durations.LongBreak),
		AutoAdvance: preferences.AutoAdvance,
	}
}

// Apply merges form values into current. Entries that are not positive
// whole minutes keep the current value.
func (form Form) Apply(current model.Preferences) model.Preferences {
	result := current
	if minutes, ok := parsePositiveInt(form.Work); ok {
		result.Durations.Work = minutes
	}
	if minutes, ok := parsePositiveInt(form.ShortBreak); ok {
		result.Durations.ShortBreak = minutes
	}
	if minutes, ok := parsePositiveInt(form.LongBreak); ok {
		result.Durations.LongBreak = minutes
	}
	result.AutoAdvance = form.AutoAdvance
	return result
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
