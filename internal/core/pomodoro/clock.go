package pomodoro

import "time"

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Timer is a pending delayed call.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time and scheduling so tests can drive the engine.
type Clock interface {
	Now() time.Time
	NewTicker(interval time.Duration) Ticker
	AfterFunc(delay time.Duration, fn func()) Timer
}

// SystemClock is the Clock backed by the time package.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// NewTicker starts a time.Ticker.
func (SystemClock) NewTicker(interval time.Duration) Ticker {
	return systemTicker{ticker: time.NewTicker(interval)}
}

// AfterFunc schedules fn on its own goroutine after delay.
func (SystemClock) AfterFunc(delay time.Duration, fn func()) Timer {
	return time.AfterFunc(delay, fn)
}

type systemTicker struct {
	ticker *time.Ticker
}

func (ticker systemTicker) C() <-chan time.Time {
	return ticker.ticker.C
}

func (ticker systemTicker) Stop() {
	ticker.ticker.Stop()
}
