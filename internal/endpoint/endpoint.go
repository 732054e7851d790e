package endpoint

import (
	"context"
	"errors"
)

// ErrSubsystemUnreachable indicates the Bluetooth audio stack cannot be
// reached at all. Fatal for the monitoring feature; the poll loop does not
// start.
var ErrSubsystemUnreachable = errors.New("bluetooth audio subsystem unreachable")

// Endpoint identifies one Bluetooth audio output device.
type Endpoint struct {
	// ID is the stable device identity (the Bluetooth address).
	ID string
	// Name is the human-readable device name, best effort.
	Name string
	// Connected reports the current connection state.
	Connected bool
}

// EventType distinguishes watcher events.
type EventType int

const (
	// Added means an endpoint connected or appeared.
	Added EventType = iota + 1
	// Removed means an endpoint disconnected or vanished.
	Removed
)

func (t EventType) String() string {
	switch t {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event describes one endpoint change.
type Event struct {
	Type     EventType
	Endpoint Endpoint
}

// Watcher maintains the live endpoint set and delivers change events.
// Events are posted to a buffered channel from the OS notification thread;
// they are consumed exclusively by the poll scheduler.
type Watcher interface {
	// Start connects to the OS audio stack and begins listening for changes.
	// Returns ErrSubsystemUnreachable when the stack is absent.
	Start(ctx context.Context) error
	// Snapshot returns the currently connected audio endpoints.
	Snapshot(ctx context.Context) ([]Endpoint, error)
	// Events exposes the queued add/remove messages.
	Events() <-chan Event
	// Close stops listening and releases the OS connection.
	Close()
}
