//go:build !linux

package platform

import "context"

// sleepSignals is unavailable here; the watcher relies on clock gaps.
func sleepSignals(ctx context.Context) (<-chan bool, error) {
	return nil, nil
}
