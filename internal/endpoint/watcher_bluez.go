package endpoint

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"stereowatch/internal/logging"
)

const (
	bluezBusName     = "org.bluez"
	deviceIface      = "org.bluez.Device1"
	propsIface       = "org.freedesktop.DBus.Properties"
	objectMgrIface   = "org.freedesktop.DBus.ObjectManager"
	a2dpSinkUUID     = "0000110b-0000-1000-8000-00805f9b34fb"
	handsFreeUUID    = "0000111e-0000-1000-8000-00805f9b34fb"
	advAudioDistUUID = "0000110d-0000-1000-8000-00805f9b34fb"
)

// eventBuffer bounds the queued add/remove messages between the D-Bus signal
// goroutine and the poll scheduler.
const eventBuffer = 64

// BluezWatcher tracks Bluetooth audio endpoints via the BlueZ system bus API.
type BluezWatcher struct {
	logger *slog.Logger

	mu      sync.Mutex
	conn    *dbus.Conn
	known   map[dbus.ObjectPath]Endpoint
	events  chan Event
	signals chan *dbus.Signal
	quit    chan struct{}
	running bool
	dropped uint64
}

// NewBluezWatcher constructs a watcher. Start must be called before use.
func NewBluezWatcher(logger *slog.Logger) *BluezWatcher {
	return &BluezWatcher{
		logger: logging.NewComponentLogger(logger, "endpoint-watcher"),
		known:  make(map[dbus.ObjectPath]Endpoint),
		events: make(chan Event, eventBuffer),
	}
}

// Start connects to the system bus, verifies BlueZ is present, and begins
// translating device signals into events.
func (w *BluezWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("%w: connect to system bus: %v", ErrSubsystemUnreachable, err)
	}

	var names []string
	if err := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return fmt.Errorf("%w: list bus names: %v", ErrSubsystemUnreachable, err)
	}
	if !containsName(names, bluezBusName) {
		return fmt.Errorf("%w: org.bluez not on system bus (is bluetooth.service running?)", ErrSubsystemUnreachable)
	}

	matches := [][]dbus.MatchOption{
		{dbus.WithMatchInterface(propsIface), dbus.WithMatchMember("PropertiesChanged"), dbus.WithMatchArg(0, deviceIface)},
		{dbus.WithMatchInterface(objectMgrIface), dbus.WithMatchMember("InterfacesAdded")},
		{dbus.WithMatchInterface(objectMgrIface), dbus.WithMatchMember("InterfacesRemoved")},
	}
	for _, opts := range matches {
		if err := conn.AddMatchSignalContext(ctx, opts...); err != nil {
			return fmt.Errorf("add signal match: %w", err)
		}
	}

	w.conn = conn
	w.signals = make(chan *dbus.Signal, eventBuffer)
	w.quit = make(chan struct{})
	w.running = true
	conn.Signal(w.signals)

	go w.signalLoop(w.signals, w.quit)

	w.logger.Info("endpoint watcher started",
		logging.String(logging.FieldEventType, "watcher_started"))
	return nil
}

// Close stops signal handling. The shared system bus connection is released
// from signal delivery but not closed; other D-Bus users may still need it.
func (w *BluezWatcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.quit)
	if w.conn != nil {
		w.conn.RemoveSignal(w.signals)
	}
	w.running = false
	w.logger.Info("endpoint watcher stopped",
		logging.String(logging.FieldEventType, "watcher_stopped"))
}

// Events exposes the queued endpoint change messages.
func (w *BluezWatcher) Events() <-chan Event {
	return w.events
}

// Snapshot enumerates currently connected audio endpoints and refreshes the
// watcher's device cache.
func (w *BluezWatcher) Snapshot(ctx context.Context) ([]Endpoint, error) {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("watcher not started")
	}

	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := conn.Object(bluezBusName, "/").CallWithContext(ctx, objectMgrIface+".GetManagedObjects", 0)
	if err := call.Store(&objects); err != nil {
		return nil, fmt.Errorf("enumerate bluez objects: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var connected []Endpoint
	for path, ifaces := range objects {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		ep, ok := endpointFromProps(props)
		if !ok {
			continue
		}
		w.known[path] = ep
		if ep.Connected {
			connected = append(connected, ep)
		}
	}
	return connected, nil
}

func (w *BluezWatcher) signalLoop(signals <-chan *dbus.Signal, quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			w.handleSignal(sig)
		}
	}
}

func (w *BluezWatcher) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}
	switch sig.Name {
	case propsIface + ".PropertiesChanged":
		w.handlePropertiesChanged(sig)
	case objectMgrIface + ".InterfacesAdded":
		w.handleInterfacesAdded(sig)
	case objectMgrIface + ".InterfacesRemoved":
		w.handleInterfacesRemoved(sig)
	}
}

func (w *BluezWatcher) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	iface, _ := sig.Body[0].(string)
	if iface != deviceIface {
		return
	}
	changed, _ := sig.Body[1].(map[string]dbus.Variant)
	connectedVar, ok := changed["Connected"]
	if !ok {
		return
	}
	connected, _ := connectedVar.Value().(bool)

	w.mu.Lock()
	ep, known := w.known[sig.Path]
	if known {
		ep.Connected = connected
		w.known[sig.Path] = ep
	}
	w.mu.Unlock()

	if !known {
		// Device connected before we ever enumerated it; the next snapshot
		// or InterfacesAdded signal will fill in identity.
		return
	}

	if connected {
		w.post(Event{Type: Added, Endpoint: ep})
	} else {
		w.post(Event{Type: Removed, Endpoint: ep})
	}
}

func (w *BluezWatcher) handleInterfacesAdded(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	path, _ := sig.Body[0].(dbus.ObjectPath)
	ifaces, _ := sig.Body[1].(map[string]map[string]dbus.Variant)
	props, ok := ifaces[deviceIface]
	if !ok {
		return
	}
	ep, ok := endpointFromProps(props)
	if !ok {
		return
	}

	w.mu.Lock()
	w.known[path] = ep
	w.mu.Unlock()

	if ep.Connected {
		w.post(Event{Type: Added, Endpoint: ep})
	}
}

func (w *BluezWatcher) handleInterfacesRemoved(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	path, _ := sig.Body[0].(dbus.ObjectPath)
	removed, _ := sig.Body[1].([]string)
	if !containsName(removed, deviceIface) {
		return
	}

	w.mu.Lock()
	ep, known := w.known[path]
	delete(w.known, path)
	w.mu.Unlock()

	if known {
		ep.Connected = false
		w.post(Event{Type: Removed, Endpoint: ep})
	}
}

// post queues an event without ever blocking the signal goroutine. A full
// queue drops the message; the scheduler's periodic snapshot reconciles any
// missed change.
func (w *BluezWatcher) post(ev Event) {
	select {
	case w.events <- ev:
	default:
		w.mu.Lock()
		w.dropped++
		dropped := w.dropped
		w.mu.Unlock()
		w.logger.Warn("endpoint event queue full, dropping message",
			logging.String(logging.FieldEventType, "endpoint_event_dropped"),
			logging.String(logging.FieldEndpoint, ev.Endpoint.ID),
			logging.String(logging.FieldErrorHint, "scheduler may be stalled; state reconciles on next snapshot"),
			logging.Int64("dropped_total", int64(dropped)))
	}
}

// endpointFromProps builds an Endpoint from Device1 properties, filtering to
// devices that advertise an audio sink or hands-free role.
func endpointFromProps(props map[string]dbus.Variant) (Endpoint, bool) {
	uuidsVar, ok := props["UUIDs"]
	if !ok {
		return Endpoint{}, false
	}
	uuids, _ := uuidsVar.Value().([]string)
	if !hasAudioUUID(uuids) {
		return Endpoint{}, false
	}

	addrVar, ok := props["Address"]
	if !ok {
		return Endpoint{}, false
	}
	addr, _ := addrVar.Value().(string)
	if addr == "" {
		return Endpoint{}, false
	}

	name := addr
	if aliasVar, ok := props["Alias"]; ok {
		if alias, _ := aliasVar.Value().(string); alias != "" {
			name = alias
		}
	} else if nameVar, ok := props["Name"]; ok {
		if n, _ := nameVar.Value().(string); n != "" {
			name = n
		}
	}

	connected := false
	if connVar, ok := props["Connected"]; ok {
		connected, _ = connVar.Value().(bool)
	}

	return Endpoint{ID: addr, Name: name, Connected: connected}, true
}

func hasAudioUUID(uuids []string) bool {
	for _, uuid := range uuids {
		switch strings.ToLower(uuid) {
		case a2dpSinkUUID, handsFreeUUID, advAudioDistUUID:
			return true
		}
	}
	return false
}

func containsName(names []string, want string) bool {
	for _, name := range names {
		if name == want {
			return true
		}
	}
	return false
}
