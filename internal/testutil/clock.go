// Package testutil provides helpers shared by package tests.
package testutil

import (
	"sort"
	"sync"
	"time"

	"tomatoclock/internal/core/pomodoro"
)

// FakeClock is a manually advanced pomodoro.Clock.
// Delayed functions run synchronously inside Advance; tickers receive
// non-blocking sends so a busy consumer sees at most one pending tick.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker
}

// NewFakeClock returns a clock frozen at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the fake current time.
func (clock *FakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

// Set moves the clock to an absolute time without firing timers or tickers.
func (clock *FakeClock) Set(now time.Time) {
	clock.mu.Lock()
	clock.now = now
	clock.mu.Unlock()
}

// NewTicker registers a ticker that fires on Advance.
func (clock *FakeClock) NewTicker(interval time.Duration) pomodoro.Ticker {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	ticker := &fakeTicker{
		ch:       make(chan time.Time, 1),
		interval: interval,
		next:     clock.now.Add(interval),
	}
	clock.tickers = append(clock.tickers, ticker)
	return ticker
}

// AfterFunc registers fn to run once the clock has advanced by delay.
func (clock *FakeClock) AfterFunc(delay time.Duration, fn func()) pomodoro.Timer {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	timer := &fakeTimer{at: clock.now.Add(delay), fn: fn}
	clock.timers = append(clock.timers, timer)
	return timer
}

// PendingTimers returns the number of delayed functions not yet run or stopped.
func (clock *FakeClock) PendingTimers() int {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	count := 0
	for _, timer := range clock.timers {
		if timer.pending() {
			count++
		}
	}
	return count
}

// ActiveTickers returns the number of tickers that have not been stopped.
func (clock *FakeClock) ActiveTickers() int {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	count := 0
	for _, ticker := range clock.tickers {
		if !ticker.isStopped() {
			count++
		}
	}
	return count
}

// PendingTicks returns the number of fired ticks not yet received by their consumer.
func (clock *FakeClock) PendingTicks() int {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	count := 0
	for _, ticker := range clock.tickers {
		count += len(ticker.ch)
	}
	return count
}

// Advance moves time forward, firing due tickers and running due timers in order.
func (clock *FakeClock) Advance(delta time.Duration) {
	clock.mu.Lock()
	clock.now = clock.now.Add(delta)
	now := clock.now

	for _, ticker := range clock.tickers {
		ticker.fire(now)
	}

	var due []*fakeTimer
	remaining := clock.timers[:0]
	for _, timer := range clock.timers {
		if !timer.pending() {
			continue
		}
		if !timer.at.After(now) {
			due = append(due, timer)
			continue
		}
		remaining = append(remaining, timer)
	}
	clock.timers = remaining
	clock.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, timer := range due {
		if timer.claim() {
			timer.fn()
		}
	}
}

type fakeTimer struct {
	mu      sync.Mutex
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (timer *fakeTimer) Stop() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if timer.stopped || timer.fired {
		return false
	}
	timer.stopped = true
	return true
}

func (timer *fakeTimer) pending() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return !timer.stopped && !timer.fired
}

func (timer *fakeTimer) claim() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if timer.stopped || timer.fired {
		return false
	}
	timer.fired = true
	return true
}

type fakeTicker struct {
	mu       sync.Mutex
	ch       chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

func (ticker *fakeTicker) C() <-chan time.Time {
	return ticker.ch
}

func (ticker *fakeTicker) Stop() {
	ticker.mu.Lock()
	ticker.stopped = true
	ticker.mu.Unlock()
}

func (ticker *fakeTicker) isStopped() bool {
	ticker.mu.Lock()
	defer ticker.mu.Unlock()
	return ticker.stopped
}

func (ticker *fakeTicker) fire(now time.Time) {
	ticker.mu.Lock()
	defer ticker.mu.Unlock()
	if ticker.stopped || now.Before(ticker.next) {
		return
	}
	for !ticker.next.After(now) {
		ticker.next = ticker.next.Add(ticker.interval)
	}
	select {
	case ticker.ch <- now:
	default:
	}
}
