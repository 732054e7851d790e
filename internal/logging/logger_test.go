package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger = logger.With(String(FieldComponent, "monitor"))
	logger.Info("mode confirmed", String(FieldEndpoint, "AA:BB:CC:DD:EE:FF"), Int("channels", 2))

	line := buf.String()
	if !strings.Contains(line, "INFO monitor: mode confirmed") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "endpoint=AA:BB:CC:DD:EE:FF") {
		t.Fatalf("missing endpoint attr: %q", line)
	}
	if !strings.Contains(line, "channels=2") {
		t.Fatalf("missing channels attr: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Warn("probe failed", Error(errors.New("device momentarily busy")))

	if !strings.Contains(buf.String(), `error="device momentarily busy"`) {
		t.Fatalf("expected quoted error, got %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected info suppressed at warn level, got %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("expected warn to pass, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Handler().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop handler should never be enabled")
	}
}
