package endpoint

import (
	"testing"

	"github.com/godbus/dbus/v5"

	"stereowatch/internal/logging"
)

func deviceProps(addr, alias string, connected bool, uuids []string) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"Address":   dbus.MakeVariant(addr),
		"Alias":     dbus.MakeVariant(alias),
		"Connected": dbus.MakeVariant(connected),
		"UUIDs":     dbus.MakeVariant(uuids),
	}
}

func TestEndpointFromPropsAcceptsAudioSink(t *testing.T) {
	props := deviceProps("AA:BB:CC:DD:EE:FF", "Buds Pro", true, []string{a2dpSinkUUID})
	ep, ok := endpointFromProps(props)
	if !ok {
		t.Fatal("expected audio device to be accepted")
	}
	if ep.ID != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("unexpected id %q", ep.ID)
	}
	if ep.Name != "Buds Pro" {
		t.Fatalf("unexpected name %q", ep.Name)
	}
	if !ep.Connected {
		t.Fatal("expected connected endpoint")
	}
}

func TestEndpointFromPropsRejectsNonAudioDevice(t *testing.T) {
	// HID-only device: keyboard service class.
	props := deviceProps("11:22:33:44:55:66", "Keyboard", true, []string{"00001124-0000-1000-8000-00805f9b34fb"})
	if _, ok := endpointFromProps(props); ok {
		t.Fatal("expected non-audio device to be filtered out")
	}
}

func TestEndpointFromPropsFallsBackToAddressForName(t *testing.T) {
	props := map[string]dbus.Variant{
		"Address":   dbus.MakeVariant("AA:BB:CC:DD:EE:FF"),
		"Connected": dbus.MakeVariant(false),
		"UUIDs":     dbus.MakeVariant([]string{handsFreeUUID}),
	}
	ep, ok := endpointFromProps(props)
	if !ok {
		t.Fatal("expected device to be accepted")
	}
	if ep.Name != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("expected address fallback name, got %q", ep.Name)
	}
}

func TestHasAudioUUIDIsCaseInsensitive(t *testing.T) {
	if !hasAudioUUID([]string{"0000110B-0000-1000-8000-00805F9B34FB"}) {
		t.Fatal("expected uppercase UUID to match")
	}
}

func TestPostDropsWhenQueueFull(t *testing.T) {
	w := NewBluezWatcher(logging.NewNop())
	ev := Event{Type: Added, Endpoint: Endpoint{ID: "AA:BB:CC:DD:EE:FF"}}
	for i := 0; i < eventBuffer; i++ {
		w.post(ev)
	}
	// Queue is full; this must not block.
	w.post(ev)
	if w.dropped != 1 {
		t.Fatalf("expected one dropped event, got %d", w.dropped)
	}
	if len(w.events) != eventBuffer {
		t.Fatalf("expected %d queued events, got %d", eventBuffer, len(w.events))
	}
}

func TestHandleInterfacesRemovedEmitsRemoval(t *testing.T) {
	w := NewBluezWatcher(logging.NewNop())
	path := dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF")
	w.known[path] = Endpoint{ID: "AA:BB:CC:DD:EE:FF", Name: "Buds", Connected: true}

	w.handleSignal(&dbus.Signal{
		Name: objectMgrIface + ".InterfacesRemoved",
		Path: path,
		Body: []any{path, []string{deviceIface}},
	})

	select {
	case ev := <-w.Events():
		if ev.Type != Removed {
			t.Fatalf("expected Removed, got %v", ev.Type)
		}
		if ev.Endpoint.ID != "AA:BB:CC:DD:EE:FF" {
			t.Fatalf("unexpected endpoint %q", ev.Endpoint.ID)
		}
	default:
		t.Fatal("expected a queued removal event")
	}
	if _, ok := w.known[path]; ok {
		t.Fatal("expected device to be forgotten")
	}
}

func TestHandlePropertiesChangedTogglesConnection(t *testing.T) {
	w := NewBluezWatcher(logging.NewNop())
	path := dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF")
	w.known[path] = Endpoint{ID: "AA:BB:CC:DD:EE:FF", Name: "Buds", Connected: false}

	w.handleSignal(&dbus.Signal{
		Name: propsIface + ".PropertiesChanged",
		Path: path,
		Body: []any{deviceIface, map[string]dbus.Variant{"Connected": dbus.MakeVariant(true)}, []string{}},
	})

	select {
	case ev := <-w.Events():
		if ev.Type != Added {
			t.Fatalf("expected Added, got %v", ev.Type)
		}
	default:
		t.Fatal("expected a queued add event")
	}
}
