package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stereowatch/internal/sessions"
	"stereowatch/internal/testsupport"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = append(captured, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func newNtfyService(t *testing.T, endpoint string) Service {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(endpoint))
	return NewService(cfg)
}

func TestNewServiceReturnsNoopWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := NewService(cfg)
	if _, ok := svc.(noopService); !ok {
		t.Fatalf("expected noop service, got %T", svc)
	}
	if err := svc.NotifyModeChanged(context.Background(), "Buds", "stereo", "hands-free"); err != nil {
		t.Fatalf("noop notify failed: %v", err)
	}
}

func TestNotifyModeChangedSendsHighPriorityForHandsFree(t *testing.T) {
	server, captured := newCaptureServer(t)
	svc := newNtfyService(t, server.URL)

	if err := svc.NotifyModeChanged(context.Background(), "Buds Pro", "stereo", "hands-free"); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if len(*captured) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*captured))
	}
	got := (*captured)[0]
	if got.priority != "high" {
		t.Fatalf("expected high priority, got %q", got.priority)
	}
	if !strings.Contains(got.body, "stereo -> hands-free") {
		t.Fatalf("unexpected body %q", got.body)
	}
}

func TestNotifyHandsFreeAppsListsTopCulprits(t *testing.T) {
	server, captured := newCaptureServer(t)
	svc := newNtfyService(t, server.URL)

	apps := []sessions.Session{
		{PID: 1, Name: "Firefox", Resolved: true, Peak: 0.9},
		{PID: 2, Name: "Discord", Resolved: true, Peak: 0.5},
		{PID: 3, Name: "Spotify", Resolved: true, Peak: 0.4},
		{PID: 4, Name: "Chromium", Resolved: true, Peak: 0.1},
	}
	if err := svc.NotifyHandsFreeApps(context.Background(), "Buds Pro", apps, true); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	body := (*captured)[0].body
	if !strings.Contains(body, "Firefox (pid 1)") {
		t.Fatalf("expected top culprit in body, got %q", body)
	}
	if !strings.Contains(body, "and 1 more") {
		t.Fatalf("expected truncation marker, got %q", body)
	}
	if !strings.Contains(body, "attribution incomplete") {
		t.Fatalf("expected incomplete marker, got %q", body)
	}
}

func TestNotifyRespectsCategoryToggles(t *testing.T) {
	server, captured := newCaptureServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	cfg.Notifications.ModeChange = false
	cfg.Notifications.Errors = false
	svc := NewService(cfg)

	if err := svc.NotifyModeChanged(context.Background(), "Buds", "stereo", "hands-free"); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if err := svc.NotifyError(context.Background(), errors.New("boom"), "probe"); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if len(*captured) != 0 {
		t.Fatalf("expected disabled categories to be silent, got %d requests", len(*captured))
	}
}

func TestSendSurfacesHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)
	svc := newNtfyService(t, server.URL)

	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error from ntfy failure")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestNotifyPersistentProbeFailure(t *testing.T) {
	server, captured := newCaptureServer(t)
	svc := newNtfyService(t, server.URL)

	if err := svc.NotifyPersistentProbeFailure(context.Background(), "Buds Pro", 10); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	got := (*captured)[0]
	if !strings.Contains(got.body, "10 consecutive polls") {
		t.Fatalf("unexpected body %q", got.body)
	}
	if got.priority != "high" {
		t.Fatalf("expected high priority, got %q", got.priority)
	}
}
