package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsWhenFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.toml")
	cfg, path, exists, err := Load(missing)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config to report exists=false")
	}
	if path != missing {
		t.Fatalf("expected resolved path %q, got %q", missing, path)
	}
	if cfg.Monitor.DebounceCount != defaultDebounceCount {
		t.Fatalf("expected default debounce count, got %d", cfg.Monitor.DebounceCount)
	}
	if cfg.PollInterval() != time.Second {
		t.Fatalf("expected 1s poll interval, got %s", cfg.PollInterval())
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
log_dir = "` + dir + `/logs"

[monitor]
poll_interval_ms = 2000
debounce_count = 3
probe_timeout_ms = 0

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Monitor.DebounceCount != 3 {
		t.Fatalf("expected debounce 3, got %d", cfg.Monitor.DebounceCount)
	}
	if cfg.Monitor.ProbeTimeoutMs != defaultProbeTimeoutMs {
		t.Fatalf("expected zero probe timeout replaced with default, got %d", cfg.Monitor.ProbeTimeoutMs)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lowercased format, got %q", cfg.Logging.Format)
	}
	if !strings.HasSuffix(cfg.SocketPath(), "stereowatch.sock") {
		t.Fatalf("unexpected socket path %q", cfg.SocketPath())
	}
}

func TestValidateRejectsProbeTimeoutAbovePollInterval(t *testing.T) {
	cfg := Default()
	cfg.Monitor.PollIntervalMs = 200
	cfg.Monitor.ProbeTimeoutMs = 500
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidateRejectsBareNtfyTopic(t *testing.T) {
	cfg := Default()
	cfg.Notifications.NtfyTopic = "my-topic"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for topic without scheme")
	}
}

func TestCreateSampleWritesParseableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Monitor.PollIntervalMs != defaultPollIntervalMs {
		t.Fatalf("sample should carry defaults, got %d", cfg.Monitor.PollIntervalMs)
	}
}
