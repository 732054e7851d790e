// Package endpoint tracks the set of connected Bluetooth audio outputs.
//
// The BlueZ watcher enumerates Device1 objects over the system D-Bus and
// converts PropertiesChanged/InterfacesAdded/InterfacesRemoved signals into
// queued Events. Signal handling never blocks and never touches tracker
// state; the poll scheduler drains the event channel at the start of each
// tick, preserving single-writer ownership.
//
// A udev netlink listener supplements the D-Bus signals: bluetooth-subsystem
// hotplug events nudge the scheduler to re-enumerate immediately instead of
// waiting for the next tick.
package endpoint
