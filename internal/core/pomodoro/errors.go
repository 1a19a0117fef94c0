package pomodoro

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current state,
	// such as switching modes while the countdown is running.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUnknownMode indicates a mode outside work/short-break/long-break.
	ErrUnknownMode = errors.New("unknown mode")
	// ErrInvalidDuration indicates a non-positive duration in minutes.
	ErrInvalidDuration = errors.New("duration must be a positive number of minutes")
	// ErrMalformedSnapshot indicates a stored record that cannot be restored.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// PersistenceError reports a failed read or write of a snapshot backend.
type PersistenceError struct {
	Op      string
	Backend string
	Err     error
}

func (err *PersistenceError) Error() string {
	if err.Backend == "" {
		return fmt.Sprintf("persistence %s: %v", err.Op, err.Err)
	}
	return fmt.Sprintf("persistence %s (%s): %v", err.Op, err.Backend, err.Err)
}

// Unwrap returns the underlying storage error.
func (err *PersistenceError) Unwrap() error {
	return err.Err
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedSnapshot, fmt.Sprintf(format, args...))
}
