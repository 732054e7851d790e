package pulse

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// volumeNorm is PA_VOLUME_NORM, the 100% software volume step.
const volumeNorm = 65536

// Sink describes one render sink as reported by pactl.
type Sink struct {
	Index      int               `json:"index"`
	Name       string            `json:"name"`
	State      string            `json:"state"`
	ChannelMap string            `json:"channel_map"`
	Properties map[string]string `json:"properties"`
}

// Channels returns the number of channels in the sink's current map.
func (s Sink) Channels() int {
	trimmed := strings.TrimSpace(s.ChannelMap)
	if trimmed == "" {
		return 0
	}
	return len(strings.Split(trimmed, ","))
}

// MatchesAddress reports whether the sink belongs to the Bluetooth device
// with the given address.
func (s Sink) MatchesAddress(addr string) bool {
	if addr == "" {
		return false
	}
	for _, key := range []string{"api.bluez5.address", "bluez5.address", "device.string"} {
		if v, ok := s.Properties[key]; ok && strings.EqualFold(v, addr) {
			return true
		}
	}
	// bluez sink names embed the address with underscores,
	// e.g. bluez_output.AA_BB_CC_DD_EE_FF.1
	mangled := strings.ReplaceAll(strings.ToUpper(addr), ":", "_")
	return strings.Contains(strings.ToUpper(s.Name), mangled)
}

// Volume is one channel's volume entry.
type Volume struct {
	Value        uint32 `json:"value"`
	ValuePercent string `json:"value_percent"`
	DB           string `json:"db"`
}

// SinkInput describes one playback stream attached to a sink.
type SinkInput struct {
	Index      int               `json:"index"`
	Sink       int               `json:"sink"`
	Corked     bool              `json:"corked"`
	Mute       bool              `json:"mute"`
	Volume     map[string]Volume `json:"volume"`
	Properties map[string]string `json:"properties"`
}

// PeakLevel returns a 0..1 activity level for the stream. Corked or muted
// streams report zero; otherwise the loudest channel volume is normalized
// against the 100% step.
func (si SinkInput) PeakLevel() float64 {
	if si.Corked || si.Mute {
		return 0
	}
	var max uint32
	for _, v := range si.Volume {
		if v.Value > max {
			max = v.Value
		}
	}
	return float64(max) / volumeNorm
}

// ProcessID returns the owning process id when the stream carries one.
func (si SinkInput) ProcessID() (int32, bool) {
	raw, ok := si.Properties["application.process.id"]
	if !ok {
		return 0, false
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return int32(pid), true
}

// ApplicationName returns the stream's self-reported application name.
func (si SinkInput) ApplicationName() string {
	return strings.TrimSpace(si.Properties["application.name"])
}

// Runner executes one external command and returns its stdout.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

// Client queries the audio server through pactl.
type Client struct {
	runner Runner
}

// NewClient builds a pactl-backed client.
func NewClient() *Client {
	return &Client{runner: ExecRunner{}}
}

// NewClientWithRunner builds a client with a custom runner (used in tests).
func NewClientWithRunner(runner Runner) *Client {
	return &Client{runner: runner}
}

// ListSinks returns all render sinks.
func (c *Client) ListSinks(ctx context.Context) ([]Sink, error) {
	out, err := c.runner.Output(ctx, "pactl", "--format=json", "list", "sinks")
	if err != nil {
		return nil, fmt.Errorf("pactl list sinks: %w", err)
	}
	var sinks []Sink
	if err := json.Unmarshal(out, &sinks); err != nil {
		return nil, fmt.Errorf("parse sink list: %w", err)
	}
	return sinks, nil
}

// ListSinkInputs returns all playback streams.
func (c *Client) ListSinkInputs(ctx context.Context) ([]SinkInput, error) {
	out, err := c.runner.Output(ctx, "pactl", "--format=json", "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	var inputs []SinkInput
	if err := json.Unmarshal(out, &inputs); err != nil {
		return nil, fmt.Errorf("parse sink-input list: %w", err)
	}
	return inputs, nil
}
