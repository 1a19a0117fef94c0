// Package api implements the local HTTP API for controlling the timer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tomatoclock/internal/core/model"
	"tomatoclock/internal/core/pomodoro"
	"tomatoclock/internal/storage"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl    Controller
	events  EventBus
	history HistoryReader
}

// Controller is the slice of the timer engine the handlers drive.
type Controller interface {
	State() pomodoro.TimerState
	Start()
	Pause()
	Reset()
	SwitchMode(target model.Mode) error
	UpdateDuration(mode model.Mode, minutes int) error
	SetAutoAdvance(enabled bool)
	Snapshot() pomodoro.Snapshot
}

// EventBus is the interface for subscribing to timer events.
type EventBus interface {
	Subscribe(id string) <-chan pomodoro.Event
	Unsubscribe(id string)
}

// HistoryReader reads finished countdowns.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]storage.HistoryEntry, error)
	CountsSince(ctx context.Context, since time.Time) (map[model.Mode]int, error)
}

// AppError is an error with an HTTP status.
type AppError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (err *AppError) Error() string {
	return err.Message
}

func badRequest(message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: message}
}

// toAppError maps engine errors to HTTP statuses.
func toAppError(err error) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, pomodoro.ErrInvalidTransition):
		return &AppError{Status: http.StatusConflict, Message: err.Error()}
	case errors.Is(err, pomodoro.ErrUnknownMode), errors.Is(err, pomodoro.ErrInvalidDuration):
		return badRequest(err.Error())
	default:
		return &AppError{Status: http.StatusInternalServerError, Message: err.Error()}
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	appErr := toAppError(err)
	writeJSON(w, appErr.Status, appErr)
}

// modeParam reads the {mode} path parameter.
func modeParam(r *http.Request) (model.Mode, error) {
	mode, err := model.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		return "", badRequest(err.Error())
	}
	return mode, nil
}
