//go:build linux

package platform

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	logindInterface   = "org.freedesktop.login1.Manager"
	prepareForSleep   = "PrepareForSleep"
	prepareSignalName = logindInterface + "." + prepareForSleep
)

// sleepSignals subscribes to logind's PrepareForSleep on the system bus.
func sleepSignals(ctx context.Context) (<-chan bool, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(logindInterface),
		dbus.WithMatchMember(prepareForSleep),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("match %s: %w", prepareSignalName, err)
	}

	raw := make(chan *dbus.Signal, 4)
	conn.Signal(raw)
	out := make(chan bool, 1)

	go func() {
		defer close(out)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case signal, ok := <-raw:
				if !ok {
					return
				}
				if signal.Name != prepareSignalName || len(signal.Body) == 0 {
					continue
				}
				sleeping, ok := signal.Body[0].(bool)
				if !ok {
					continue
				}
				select {
				case out <- sleeping:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
