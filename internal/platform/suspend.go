package platform

import (
	"context"
	"log/slog"
	"time"

	"tomatoclock/internal/core/pomodoro"
)

const (
	defaultSampleInterval = time.Second
	defaultGapThreshold   = 2 * time.Second
)

// SuspendOptions configures a SuspendWatcher.
type SuspendOptions struct {
	Clock     pomodoro.Clock
	Interval  time.Duration
	Threshold time.Duration
	Logger    *slog.Logger
	// OnSuspend runs when the OS announces an imminent sleep.
	OnSuspend func()
	// OnResume receives the wall time that passed while the process was stopped.
	OnResume func(elapsed time.Duration)
	// SleepSignals overrides the OS sleep notification source. It reports true
	// before sleep and false after wake.
	SleepSignals func(ctx context.Context) (<-chan bool, error)
}

// SuspendWatcher detects that the process was suspended. It samples the wall
// clock every Interval; a gap longer than Interval+Threshold is reported once
// through OnResume. Where the OS broadcasts sleep notifications they are used to
// persist before sleep, to re-sample promptly on wake and to tell a suspend from
// a wall-clock step.
type SuspendWatcher struct {
	clock        pomodoro.Clock
	interval     time.Duration
	threshold    time.Duration
	logger       *slog.Logger
	onSuspend    func()
	onResume     func(time.Duration)
	sleepSignals func(ctx context.Context) (<-chan bool, error)
	last         time.Time
}

// NewSuspendWatcher applies defaults to opts.
func NewSuspendWatcher(opts SuspendOptions) *SuspendWatcher {
	if opts.Clock == nil {
		opts.Clock = pomodoro.SystemClock{}
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultSampleInterval
	}
	if opts.Threshold <= 0 {
		opts.Threshold = defaultGapThreshold
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.OnSuspend == nil {
		opts.OnSuspend = func() {}
	}
	if opts.OnResume == nil {
		opts.OnResume = func(time.Duration) {}
	}
	if opts.SleepSignals == nil {
		opts.SleepSignals = sleepSignals
	}
	return &SuspendWatcher{
		clock:        opts.Clock,
		interval:     opts.Interval,
		threshold:    opts.Threshold,
		logger:       opts.Logger,
		onSuspend:    opts.OnSuspend,
		onResume:     opts.OnResume,
		sleepSignals: opts.SleepSignals,
	}
}

// Run samples until ctx is done.
func (watcher *SuspendWatcher) Run(ctx context.Context) {
	signals, err := watcher.sleepSignals(ctx)
	if err != nil {
		watcher.logger.Info("suspend: sleep notifications unavailable, using clock gaps only", "err", err)
		signals = nil
	}
	// With sleep notifications available, a gap only counts as a suspend when
	// the OS announced the sleep; other forward jumps are clock corrections.
	gated := signals != nil
	asleep := false

	watcher.last = wallNow(watcher.clock)
	ticker := watcher.clock.NewTicker(watcher.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			watcher.sample(!gated || asleep)
		case sleeping, ok := <-signals:
			if !ok {
				signals = nil
				gated = false
				continue
			}
			if sleeping {
				watcher.logger.Info("suspend: system going to sleep")
				asleep = true
				watcher.onSuspend()
				continue
			}
			watcher.logger.Info("suspend: system woke up")
			watcher.sample(true)
			asleep = false
		}
	}
}

func (watcher *SuspendWatcher) sample(trusted bool) {
	now := wallNow(watcher.clock)
	gap := now.Sub(watcher.last)
	watcher.last = now
	if gap <= watcher.interval+watcher.threshold {
		return
	}
	elapsed := gap - watcher.interval
	if !trusted {
		watcher.logger.Info("suspend: clock jump without sleep notification ignored", "jump", elapsed)
		return
	}
	watcher.logger.Info("suspend: clock gap detected", "elapsed", elapsed)
	watcher.onResume(elapsed)
}

// wallNow strips the monotonic reading, which does not advance during system sleep.
func wallNow(clock pomodoro.Clock) time.Time {
	return clock.Now().Round(0)
}
