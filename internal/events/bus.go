// Package events fans timer events out to SSE clients and other late subscribers.
package events

import (
	"sync"

	"tomatoclock/internal/core/pomodoro"
)

const subBufferSize = 8

// Bus is a non-blocking publish-subscribe bus of timer events.
// Slow subscribers lose events instead of blocking the publisher.
type Bus struct {
	mu     sync.Mutex
	subs   map[string]chan pomodoro.Event
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]chan pomodoro.Event)}
}

// Subscribe registers id and returns its channel. Subscribing an existing id
// replaces (and closes) the previous channel. After Close the channel is returned closed.
func (b *Bus) Subscribe(id string) <-chan pomodoro.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan pomodoro.Event, subBufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	if previous, ok := b.subs[id]; ok {
		close(previous)
	}
	b.subs[id] = ch
	return ch
}

// Unsubscribe removes id and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish delivers event to every subscriber whose buffer has room.
func (b *Bus) Publish(event pomodoro.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel; later subscriptions are closed immediately.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
