package pulse

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubRunner struct {
	output []byte
	err    error

	lastName string
	lastArgs []string
}

func (r *stubRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	r.lastName = name
	r.lastArgs = args
	return r.output, r.err
}

const sinkJSON = `[
  {
    "index": 57,
    "name": "bluez_output.AA_BB_CC_DD_EE_FF.1",
    "state": "RUNNING",
    "channel_map": "front-left,front-right",
    "properties": {
      "api.bluez5.address": "AA:BB:CC:DD:EE:FF",
      "device.description": "Buds Pro"
    }
  },
  {
    "index": 58,
    "name": "alsa_output.pci-0000_00_1f.3.analog-stereo",
    "state": "SUSPENDED",
    "channel_map": "front-left,front-right",
    "properties": {}
  }
]`

const sinkInputJSON = `[
  {
    "index": 12,
    "sink": 57,
    "corked": false,
    "mute": false,
    "volume": {
      "front-left": {"value": 45875, "value_percent": "70%", "db": "-9.29 dB"},
      "front-right": {"value": 45875, "value_percent": "70%", "db": "-9.29 dB"}
    },
    "properties": {
      "application.name": "Firefox",
      "application.process.id": "4242"
    }
  },
  {
    "index": 13,
    "sink": 57,
    "corked": true,
    "mute": false,
    "volume": {
      "mono": {"value": 65536, "value_percent": "100%", "db": "0.00 dB"}
    },
    "properties": {
      "application.name": "Paused Player"
    }
  }
]`

func TestListSinksParsesPactlOutput(t *testing.T) {
	runner := &stubRunner{output: []byte(sinkJSON)}
	client := NewClientWithRunner(runner)

	sinks, err := client.ListSinks(context.Background())
	if err != nil {
		t.Fatalf("ListSinks failed: %v", err)
	}
	if runner.lastName != "pactl" {
		t.Fatalf("expected pactl invocation, got %q", runner.lastName)
	}
	if len(sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(sinks))
	}
	if got := sinks[0].Channels(); got != 2 {
		t.Fatalf("expected 2 channels, got %d", got)
	}
}

func TestListSinksWrapsRunnerError(t *testing.T) {
	runner := &stubRunner{err: errors.New("exec: pactl not found")}
	client := NewClientWithRunner(runner)

	if _, err := client.ListSinks(context.Background()); err == nil {
		t.Fatal("expected error from failing runner")
	} else if !strings.Contains(err.Error(), "pactl list sinks") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestSinkMatchesAddress(t *testing.T) {
	byProperty := Sink{Properties: map[string]string{"api.bluez5.address": "aa:bb:cc:dd:ee:ff"}}
	if !byProperty.MatchesAddress("AA:BB:CC:DD:EE:FF") {
		t.Fatal("expected case-insensitive property match")
	}

	byName := Sink{Name: "bluez_output.AA_BB_CC_DD_EE_FF.1"}
	if !byName.MatchesAddress("aa:bb:cc:dd:ee:ff") {
		t.Fatal("expected mangled-name match")
	}

	other := Sink{Name: "alsa_output.pci-0000_00_1f.3.analog-stereo"}
	if other.MatchesAddress("AA:BB:CC:DD:EE:FF") {
		t.Fatal("expected non-bluetooth sink not to match")
	}
	if other.MatchesAddress("") {
		t.Fatal("expected empty address never to match")
	}
}

func TestListSinkInputsParsesStreams(t *testing.T) {
	runner := &stubRunner{output: []byte(sinkInputJSON)}
	client := NewClientWithRunner(runner)

	inputs, err := client.ListSinkInputs(context.Background())
	if err != nil {
		t.Fatalf("ListSinkInputs failed: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("expected 2 streams, got %d", len(inputs))
	}

	playing := inputs[0]
	pid, ok := playing.ProcessID()
	if !ok || pid != 4242 {
		t.Fatalf("expected pid 4242, got %d (ok=%v)", pid, ok)
	}
	if playing.ApplicationName() != "Firefox" {
		t.Fatalf("unexpected application name %q", playing.ApplicationName())
	}
	if peak := playing.PeakLevel(); peak <= 0.69 || peak >= 0.71 {
		t.Fatalf("expected peak near 0.70, got %f", peak)
	}

	corked := inputs[1]
	if corked.PeakLevel() != 0 {
		t.Fatal("expected corked stream to report zero peak")
	}
	if _, ok := corked.ProcessID(); ok {
		t.Fatal("expected missing pid to be reported as absent")
	}
}

func TestListSinkInputsRejectsMalformedJSON(t *testing.T) {
	runner := &stubRunner{output: []byte("not json")}
	client := NewClientWithRunner(runner)

	if _, err := client.ListSinkInputs(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}
