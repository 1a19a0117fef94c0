package pomodoro

import (
	"fmt"
	"sync"

	"tomatoclock/internal/core/model"
)

// Engine is the Pomodoro state machine. All operations are serialized by a
// single mutex; the tick schedule runs on its own goroutine and is tagged with
// a generation so that a tick from a cancelled schedule is discarded.
type Engine struct {
	mu         sync.Mutex
	clock      Clock
	config     model.EngineConfig
	state      TimerState
	generation uint64
	stopTicks  chan struct{}
	advance    Timer
	advanceTo  model.Mode
	advanceSeq uint64
	events     []chan Event
	closed     bool
}

// New creates an Idle engine in work mode seeded with the configured defaults.
func New(config model.EngineConfig, clock Clock) *Engine {
	defaults := model.DefaultEngineConfig()
	if config.TickInterval <= 0 {
		config.TickInterval = defaults.TickInterval
	}
	if config.AutoAdvanceDelay <= 0 {
		config.AutoAdvanceDelay = defaults.AutoAdvanceDelay
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = defaults.StaleAfter
	}
	if config.LongBreakEvery <= 0 {
		config.LongBreakEvery = defaults.LongBreakEvery
	}
	if !config.Defaults.Durations.Valid() {
		config.Defaults.Durations = defaults.Defaults.Durations
	}
	if clock == nil {
		clock = SystemClock{}
	}

	engine := &Engine{
		config: config,
		clock:  clock,
	}
	engine.resetToPreferencesLocked(config.Defaults)
	return engine
}

// Config returns the effective engine configuration.
func (engine *Engine) Config() model.EngineConfig {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.config
}

// State returns a copy of the current timer state.
func (engine *Engine) State() TimerState {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.state
}

// Subscribe registers a new observer channel.
func (engine *Engine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		close(ch)
		return ch
	}
	engine.events = append(engine.events, ch)
	return ch
}

// Close stops all scheduling and closes observer channels.
func (engine *Engine) Close() {
	engine.mu.Lock()
	if engine.closed {
		engine.mu.Unlock()
		return
	}
	engine.closed = true
	engine.stopTicksLocked()
	engine.cancelAdvanceLocked()
	events := engine.events
	engine.events = nil
	engine.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

// Start begins counting down. It is a no-op while running.
// Starting at zero remaining applies a pending auto-advance first, or resets
// the current mode when there is none.
func (engine *Engine) Start() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed || engine.state.Running {
		return
	}
	if engine.state.RemainingSeconds == 0 {
		if engine.advance != nil {
			next := engine.advanceTo
			engine.cancelAdvanceLocked()
			engine.switchModeLocked(next)
		} else {
			engine.resetCountdownLocked()
		}
	}
	engine.cancelAdvanceLocked()
	engine.startLocked()
	engine.emitStateLocked(CauseStart)
}

// Pause stops the countdown and keeps the remaining time.
// Pausing during the auto-advance delay cancels the delayed start and leaves
// the engine idle in the next mode.
func (engine *Engine) Pause() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		return
	}
	if !engine.state.Running {
		if engine.advance == nil {
			return
		}
		next := engine.advanceTo
		engine.cancelAdvanceLocked()
		engine.switchModeLocked(next)
		engine.emitStateLocked(CausePause)
		return
	}
	engine.stopTicksLocked()
	engine.state.Running = false
	engine.emitStateLocked(CausePause)
}

// Reset stops the countdown and restores the full duration of the current mode.
func (engine *Engine) Reset() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		return
	}
	engine.stopTicksLocked()
	engine.cancelAdvanceLocked()
	engine.state.Running = false
	engine.resetCountdownLocked()
	engine.emitStateLocked(CauseReset)
}

// SwitchMode selects target and loads its full duration. Only allowed while idle.
func (engine *Engine) SwitchMode(target model.Mode) error {
	if !target.Valid() {
		return fmt.Errorf("switch mode: %w: %q", ErrUnknownMode, target)
	}
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.state.Running {
		return fmt.Errorf("switch to %s while running: %w", target, ErrInvalidTransition)
	}
	engine.cancelAdvanceLocked()
	engine.switchModeLocked(target)
	engine.emitStateLocked(CauseSwitchMode)
	return nil
}

// UpdateDuration changes the configured minutes of mode. Only allowed while idle.
// The current countdown is reset when its own mode's duration changes.
func (engine *Engine) UpdateDuration(mode model.Mode, minutes int) error {
	if !mode.Valid() {
		return fmt.Errorf("update duration: %w: %q", ErrUnknownMode, mode)
	}
	if minutes <= 0 {
		return fmt.Errorf("update %s duration to %d: %w", mode, minutes, ErrInvalidDuration)
	}
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.state.Running {
		return fmt.Errorf("update %s duration while running: %w", mode, ErrInvalidTransition)
	}
	if engine.state.Durations.Minutes(mode) == minutes {
		return nil
	}
	engine.state.Durations = engine.state.Durations.With(mode, minutes)
	if mode == engine.state.Mode {
		engine.cancelAdvanceLocked()
		engine.resetCountdownLocked()
	}
	engine.emitStateLocked(CauseDuration)
	return nil
}

// UpdateDurations replaces all configured minutes at once. Only allowed while idle.
// The current countdown is reset when its own mode's duration changes, unless an
// auto-advance is pending, in which case the advance loads the new duration.
func (engine *Engine) UpdateDurations(durations model.Durations) error {
	if !durations.Valid() {
		return fmt.Errorf("update durations to %+v: %w", durations, ErrInvalidDuration)
	}
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.state.Durations == durations {
		return nil
	}
	if engine.state.Running {
		return fmt.Errorf("update durations while running: %w", ErrInvalidTransition)
	}
	current := engine.state.Mode
	changed := engine.state.Durations.Minutes(current) != durations.Minutes(current)
	engine.state.Durations = durations
	if changed && engine.advance == nil {
		engine.resetCountdownLocked()
	}
	engine.emitStateLocked(CauseDuration)
	return nil
}

// SetAutoAdvance toggles automatic start of the next mode after completion.
// Disabling it during the auto-advance delay switches to the next mode at once.
func (engine *Engine) SetAutoAdvance(enabled bool) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed || engine.state.AutoAdvance == enabled {
		return
	}
	engine.state.AutoAdvance = enabled
	if !enabled && engine.advance != nil {
		next := engine.advanceTo
		engine.cancelAdvanceLocked()
		engine.switchModeLocked(next)
	}
	engine.emitStateLocked(CauseSettings)
}

// Tick advances a running countdown by one second. It has no effect while idle.
func (engine *Engine) Tick() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if !engine.state.Running {
		return
	}
	engine.tickLocked()
}

// OnResume applies a coarse elapsed-time delta observed after the process was
// suspended while running. It completes the countdown if the delta covers it.
func (engine *Engine) OnResume(elapsedSeconds int) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if !engine.state.Running || elapsedSeconds <= 0 {
		return
	}
	engine.state.RemainingSeconds -= elapsedSeconds
	if engine.state.RemainingSeconds <= 0 {
		engine.state.RemainingSeconds = 0
		engine.completeLocked()
		return
	}
	engine.emitStateLocked(CauseResume)
}

// Snapshot captures the current state with a timestamp.
func (engine *Engine) Snapshot() Snapshot {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return Snapshot{
		CompletedWorkSessions: engine.state.CompletedWorkSessions,
		Durations:             engine.state.Durations,
		AutoAdvance:           engine.state.AutoAdvance,
		Mode:                  engine.state.Mode,
		RemainingSeconds:      engine.state.RemainingSeconds,
		TotalSeconds:          engine.state.TotalSeconds,
		Running:               engine.state.Running,
		SavedAt:               engine.clock.Now(),
	}
}

func (engine *Engine) run(generation uint64, ticker Ticker, stop <-chan struct{}) {
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			engine.tickGeneration(generation)
		}
	}
}

func (engine *Engine) tickGeneration(generation uint64) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if generation != engine.generation || !engine.state.Running {
		return
	}
	engine.tickLocked()
}

func (engine *Engine) tickLocked() {
	engine.state.RemainingSeconds--
	if engine.state.RemainingSeconds <= 0 {
		engine.state.RemainingSeconds = 0
		engine.completeLocked()
		return
	}
	engine.emitStateLocked(CauseTick)
}

func (engine *Engine) completeLocked() {
	completed := engine.state.Mode
	engine.stopTicksLocked()
	engine.state.Running = false

	if completed == model.ModeWork {
		engine.state.CompletedWorkSessions++
	}
	next := nextMode(completed, engine.state.CompletedWorkSessions, engine.config.LongBreakEvery)

	engine.emitLocked(Event{
		Type:     EventCompleted,
		Cause:    CauseCompleted,
		State:    engine.state,
		Mode:     completed,
		NextMode: next,
		At:       engine.clock.Now(),
	})

	if engine.state.AutoAdvance {
		engine.scheduleAdvanceLocked(next)
	} else {
		engine.switchModeLocked(next)
	}
	engine.emitStateLocked(CauseCompleted)
}

// nextMode picks the mode that follows completed, given the work-session count
// after the completion was counted.
func nextMode(completed model.Mode, completedWork, longBreakEvery int) model.Mode {
	if completed != model.ModeWork {
		return model.ModeWork
	}
	if completedWork > 0 && completedWork%longBreakEvery == 0 {
		return model.ModeLongBreak
	}
	return model.ModeShortBreak
}

func (engine *Engine) scheduleAdvanceLocked(next model.Mode) {
	engine.cancelAdvanceLocked()
	seq := engine.advanceSeq
	engine.advanceTo = next
	engine.advance = engine.clock.AfterFunc(engine.config.AutoAdvanceDelay, func() {
		engine.runAdvance(seq)
	})
}

func (engine *Engine) runAdvance(seq uint64) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed || engine.advance == nil || seq != engine.advanceSeq {
		return
	}
	next := engine.advanceTo
	engine.advance = nil
	engine.switchModeLocked(next)
	engine.startLocked()
	engine.emitStateLocked(CauseAutoAdvance)
}

func (engine *Engine) cancelAdvanceLocked() {
	if engine.advance != nil {
		engine.advance.Stop()
		engine.advance = nil
	}
	engine.advanceSeq++
}

func (engine *Engine) startLocked() {
	engine.state.Running = true
	engine.generation++
	stop := make(chan struct{})
	engine.stopTicks = stop
	go engine.run(engine.generation, engine.clock.NewTicker(engine.config.TickInterval), stop)
}

func (engine *Engine) stopTicksLocked() {
	engine.generation++
	if engine.stopTicks != nil {
		close(engine.stopTicks)
		engine.stopTicks = nil
	}
}

func (engine *Engine) switchModeLocked(mode model.Mode) {
	engine.state.Mode = mode
	engine.resetCountdownLocked()
}

func (engine *Engine) resetCountdownLocked() {
	seconds := engine.state.Durations.Seconds(engine.state.Mode)
	engine.state.RemainingSeconds = seconds
	engine.state.TotalSeconds = seconds
}

func (engine *Engine) resetToPreferencesLocked(preferences model.Preferences) {
	engine.state = TimerState{
		Mode:        model.ModeWork,
		AutoAdvance: preferences.AutoAdvance,
		Durations:   preferences.Durations,
	}
	engine.resetCountdownLocked()
}

func (engine *Engine) emitStateLocked(cause Cause) {
	engine.emitLocked(Event{
		Type:  EventStateChanged,
		Cause: cause,
		State: engine.state,
		Mode:  engine.state.Mode,
		At:    engine.clock.Now(),
	})
}

func (engine *Engine) emitLocked(event Event) {
	for _, ch := range engine.events {
		select {
		case ch <- event:
		default:
		}
	}
}
