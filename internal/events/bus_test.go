package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tomatoclock/internal/core/model"
	"tomatoclock/internal/core/pomodoro"
	"tomatoclock/internal/events"
)

func stateEvent(remaining int) pomodoro.Event {
	return pomodoro.Event{
		Type:  pomodoro.EventStateChanged,
		Cause: pomodoro.CauseTick,
		Mode:  model.ModeWork,
		State: pomodoro.TimerState{Mode: model.ModeWork, RemainingSeconds: remaining, TotalSeconds: 1500, Running: true},
	}
}

func TestBusSubscribePublish(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("client-1")

	bus.Publish(stateEvent(1499))

	select {
	case got := <-ch:
		require.Equal(t, 1499, got.State.RemainingSeconds)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("client-1")

	bus.Unsubscribe("client-1")

	_, ok := <-ch
	require.False(t, ok)
	require.Zero(t, bus.SubscriberCount())
}

func TestBusDropsEventsWhenFull(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("slow-reader")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			bus.Publish(stateEvent(1500 - i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	require.Len(t, ch, cap(ch))
}

func TestBusResubscribeReplacesChannel(t *testing.T) {
	bus := events.NewBus()
	first := bus.Subscribe("client")
	second := bus.Subscribe("client")

	_, ok := <-first
	require.False(t, ok)
	require.Equal(t, 1, bus.SubscriberCount())

	bus.Publish(stateEvent(10))
	require.Len(t, second, 1)
}

func TestBusClose(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("client")

	bus.Close()

	_, ok := <-ch
	require.False(t, ok)
	_, ok = <-bus.Subscribe("late")
	require.False(t, ok)
	require.NotPanics(t, func() { bus.Publish(stateEvent(1)) })
}
