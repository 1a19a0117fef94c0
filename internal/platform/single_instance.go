// Package platform provides OS integration: a single-instance lock and
// detection of system suspend.
package platform

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"time"
)

// ErrAlreadyRunning indicates another instance already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

// InstanceGuard holds the single-instance lock. Two processes driving the same
// snapshot files would overwrite each other's countdown.
type InstanceGuard struct {
	listener net.Listener
	address  string
}

// AcquireSingleInstance attempts to bind a deterministic localhost port.
func AcquireSingleInstance(appName string) (*InstanceGuard, error) {
	address := instanceAddress(appName)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, address)
	}
	guard := &InstanceGuard{listener: listener, address: address}
	go guard.acceptLoop()
	return guard, nil
}

// acceptLoop answers connection checks from InstanceRunning until the guard is released.
func (guard *InstanceGuard) acceptLoop() {
	for {
		conn, err := guard.listener.Accept()
		if err != nil {
			return
		}
		_ = conn.Close()
	}
}

// Release frees the single instance lock.
func (guard *InstanceGuard) Release() error {
	if guard == nil || guard.listener == nil {
		return nil
	}
	return guard.listener.Close()
}

// Address returns the bound address.
func (guard *InstanceGuard) Address() string {
	if guard == nil {
		return ""
	}
	return guard.address
}

// InstanceRunning reports whether some process currently holds the lock for appName.
func InstanceRunning(appName string) bool {
	conn, err := net.DialTimeout("tcp", instanceAddress(appName), 200*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func instanceAddress(appName string) string {
	return fmt.Sprintf("127.0.0.1:%d", portFromName(appName))
}

func portFromName(appName string) int {
	const (
		minPort = 20000
		maxPort = 39999
	)
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(appName))
	rangeSize := maxPort - minPort + 1
	return minPort + int(hash.Sum32()%uint32(rangeSize))
}
