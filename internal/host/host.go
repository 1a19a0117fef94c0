// Package host connects the timer engine to persistence, history, alerts
// and event subscribers.
package host

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"tomatoclock/internal/core/model"
	"tomatoclock/internal/core/pomodoro"
	"tomatoclock/internal/events"
	"tomatoclock/internal/storage"
	"tomatoclock/internal/tracing"
)

const (
	eventBuffer      = 64
	finalSaveTimeout = 2 * time.Second
)

// Alerter is told about every finished countdown.
type Alerter interface {
	Completed(completed, next model.Mode)
}

// HistoryRecorder stores finished countdowns.
type HistoryRecorder interface {
	Record(ctx context.Context, entry storage.HistoryEntry) (storage.HistoryEntry, error)
}

// Options configures a Host. Only Store is required.
type Options struct {
	Store   storage.SnapshotStore
	History HistoryRecorder
	Alerter Alerter
	Bus     *events.Bus
	Tracer  *tracing.Tracer
	Logger  *slog.Logger
	// PersistEvery bounds how long tick-only changes stay unsaved.
	PersistEvery time.Duration
}

// Host drives persistence and notifications for one engine.
type Host struct {
	engine       *pomodoro.Engine
	events       <-chan pomodoro.Event
	store        storage.SnapshotStore
	history      HistoryRecorder
	alerter      Alerter
	bus          *events.Bus
	tracer       *tracing.Tracer
	logger       *slog.Logger
	persistEvery time.Duration

	mu       sync.Mutex
	lastSave time.Time
	pending  *model.Durations
}

// New subscribes to engine immediately so that no event emitted before Run is lost.
func New(engine *pomodoro.Engine, opts Options) *Host {
	if opts.Store == nil {
		opts.Store = storage.NewMemoryStore("memory")
	}
	if opts.Tracer == nil {
		opts.Tracer = tracing.Noop()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PersistEvery <= 0 {
		opts.PersistEvery = 30 * time.Second
	}
	return &Host{
		engine:       engine,
		events:       engine.Subscribe(eventBuffer),
		store:        opts.Store,
		history:      opts.History,
		alerter:      opts.Alerter,
		bus:          opts.Bus,
		tracer:       opts.Tracer,
		logger:       opts.Logger,
		persistEvery: opts.PersistEvery,
	}
}

// Engine returns the driven engine.
func (h *Host) Engine() *pomodoro.Engine {
	return h.engine
}

// Restore loads the stored snapshot and seeds the engine with it. A load failure
// is logged and treated as a missing snapshot.
func (h *Host) Restore(ctx context.Context) pomodoro.RestoreOutcome {
	ctx, span := h.tracer.Start(ctx, "snapshot.load", attribute.String("backend", h.store.Name()))
	snapshot, err := h.store.Load(ctx)
	tracing.End(span, err)
	if err != nil {
		h.logStorageError("load", err)
		snapshot = nil
	}

	outcome, err := h.engine.Restore(snapshot)
	if err != nil {
		h.logger.Warn("host: stored snapshot rejected, starting fresh", "err", err)
	}
	state := h.engine.State()
	h.logger.Info("host: timer restored",
		"outcome", outcome,
		"mode", state.Mode,
		"remaining", state.Clock(),
		"running", state.Running,
		"completedWorkSessions", state.CompletedWorkSessions,
	)
	return outcome
}

// Run consumes engine events until ctx is done or the engine is closed.
// State changes are saved immediately, except tick-only changes which are saved
// at most once per PersistEvery. A final snapshot is written on cancellation.
func (h *Host) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalSaveTimeout)
			h.Persist(saveCtx, "shutdown")
			cancel()
			return nil
		case event, ok := <-h.events:
			if !ok {
				return nil
			}
			h.handle(ctx, event)
		}
	}
}

func (h *Host) handle(ctx context.Context, event pomodoro.Event) {
	switch event.Type {
	case pomodoro.EventCompleted:
		h.logger.Info("host: countdown completed",
			"mode", event.Mode,
			"next", event.NextMode,
			"completedWorkSessions", event.State.CompletedWorkSessions,
		)
		if h.alerter != nil {
			h.alerter.Completed(event.Mode, event.NextMode)
		}
		h.recordHistory(ctx, event)
	case pomodoro.EventStateChanged:
		if event.Cause != pomodoro.CauseTick || h.saveDue(event.At) {
			h.Persist(ctx, string(event.Cause))
		}
		if !event.State.Running {
			h.applyPending()
		}
	}

	if h.bus != nil {
		h.bus.Publish(event)
	}
}

func (h *Host) saveDue(at time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return at.Sub(h.lastSave) >= h.persistEvery
}

// Suspend writes a snapshot right away. The suspend watcher calls it before sleep.
func (h *Host) Suspend(ctx context.Context) error {
	return h.Persist(ctx, "suspend")
}

// Persist saves the current snapshot. Failures are logged and returned; the timer
// keeps running in memory either way.
func (h *Host) Persist(ctx context.Context, reason string) error {
	snapshot := h.engine.Snapshot()

	ctx, span := h.tracer.Start(ctx, "snapshot.save",
		attribute.String("backend", h.store.Name()),
		attribute.String("reason", reason),
		attribute.String("mode", string(snapshot.Mode)),
		attribute.Bool("running", snapshot.Running),
	)
	err := h.store.Save(ctx, snapshot)
	tracing.End(span, err)

	var partial *storage.PartialSaveError
	if err == nil || errors.As(err, &partial) {
		h.mu.Lock()
		h.lastSave = snapshot.SavedAt
		h.mu.Unlock()
	}
	if err != nil {
		h.logStorageError("save", err)
		return err
	}
	h.logger.Debug("host: snapshot saved", "reason", reason, "remaining", snapshot.RemainingSeconds)
	return nil
}

func (h *Host) recordHistory(ctx context.Context, event pomodoro.Event) {
	if h.history == nil {
		return
	}
	ctx, span := h.tracer.Start(ctx, "history.record", attribute.String("mode", string(event.Mode)))
	_, err := h.history.Record(ctx, storage.HistoryEntry{
		Mode:            event.Mode,
		NextMode:        event.NextMode,
		DurationSeconds: event.State.TotalSeconds,
		WorkSessions:    event.State.CompletedWorkSessions,
		CompletedAt:     event.At,
	})
	tracing.End(span, err)
	if err != nil {
		h.logger.Warn("host: failed to record completion", "mode", event.Mode, "err", err)
	}
}

// ApplyPreferences pushes reloaded default durations and auto-advance into the
// engine. Auto-advance always applies. Durations cannot change while the timer
// is running; they are kept pending and applied once it stops, and false is
// returned.
func (h *Host) ApplyPreferences(preferences model.Preferences) bool {
	h.engine.SetAutoAdvance(preferences.AutoAdvance)

	err := h.engine.UpdateDurations(preferences.Durations)
	switch {
	case err == nil:
		h.setPending(nil)
		return true
	case errors.Is(err, pomodoro.ErrInvalidTransition):
		durations := preferences.Durations
		h.setPending(&durations)
		h.logger.Info("host: timer running, durations deferred until it stops")
		return false
	default:
		h.logger.Warn("host: failed to apply durations", "err", err)
		return false
	}
}

func (h *Host) setPending(durations *model.Durations) {
	h.mu.Lock()
	h.pending = durations
	h.mu.Unlock()
}

// applyPending applies durations deferred by ApplyPreferences once the timer is idle.
func (h *Host) applyPending() {
	h.mu.Lock()
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()
	if pending == nil {
		return
	}

	err := h.engine.UpdateDurations(*pending)
	if errors.Is(err, pomodoro.ErrInvalidTransition) {
		h.mu.Lock()
		if h.pending == nil {
			h.pending = pending
		}
		h.mu.Unlock()
		return
	}
	if err != nil {
		h.logger.Warn("host: failed to apply deferred durations", "err", err)
		return
	}
	h.logger.Info("host: deferred durations applied", "durations", *pending)
}

func (h *Host) logStorageError(op string, err error) {
	var partial *storage.PartialSaveError
	if errors.As(err, &partial) {
		h.logger.Warn("host: snapshot "+op+" degraded, one backend failed", "err", err)
		return
	}
	var persistence *pomodoro.PersistenceError
	if errors.As(err, &persistence) {
		h.logger.Warn("host: snapshot "+op+" failed", "backend", persistence.Backend, "op", persistence.Op, "err", err)
		return
	}
	h.logger.Warn("host: snapshot "+op+" failed", "err", err)
}
