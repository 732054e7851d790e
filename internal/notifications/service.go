package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stereowatch/internal/config"
	"stereowatch/internal/sessions"
)

const userAgent = "Stereowatch-Go/0.1.0"

// Service defines the notification surface exposed to the monitor.
type Service interface {
	NotifyModeChanged(ctx context.Context, endpointName, previous, current string) error
	NotifyHandsFreeApps(ctx context.Context, endpointName string, apps []sessions.Session, incomplete bool) error
	NotifyPersistentProbeFailure(ctx context.Context, endpointName string, failures int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:   topic,
		client:     client,
		modeChange: cfg.Notifications.ModeChange,
		apps:       cfg.Notifications.Apps,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client

	modeChange bool
	apps       bool
	errors     bool
}

func (n *ntfyService) NotifyModeChanged(ctx context.Context, endpointName, previous, current string) error {
	if !n.modeChange {
		return nil
	}
	endpointName = strings.TrimSpace(endpointName)
	data := payload{
		title:   "Stereowatch - Mode Changed",
		message: fmt.Sprintf("%s switched %s -> %s", endpointName, previous, current),
		tags:    []string{"stereowatch", "mode", current},
	}
	if current == "hands-free" {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyHandsFreeApps(ctx context.Context, endpointName string, apps []sessions.Session, incomplete bool) error {
	if !n.apps {
		return nil
	}
	endpointName = strings.TrimSpace(endpointName)

	var builder strings.Builder
	if len(apps) == 0 {
		builder.WriteString("No application holds an audio stream")
	} else {
		builder.WriteString("Likely culprits:")
		for i, app := range apps {
			if i >= 3 {
				builder.WriteString(fmt.Sprintf("\n... and %d more", len(apps)-i))
				break
			}
			builder.WriteString("\n")
			builder.WriteString(app.Name)
			if app.PID > 0 {
				builder.WriteString(fmt.Sprintf(" (pid %d)", app.PID))
			}
		}
	}
	if incomplete {
		builder.WriteString("\nattribution incomplete")
	}

	data := payload{
		title:   fmt.Sprintf("Stereowatch - %s in hands-free", endpointName),
		message: builder.String(),
		tags:    []string{"stereowatch", "apps", "hands-free"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPersistentProbeFailure(ctx context.Context, endpointName string, failures int) error {
	if !n.errors {
		return nil
	}
	endpointName = strings.TrimSpace(endpointName)
	data := payload{
		title:    "Stereowatch - Probe Failing",
		message:  fmt.Sprintf("Could not determine mode of %s for %d consecutive polls", endpointName, failures),
		tags:     []string{"stereowatch", "probe", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Stereowatch - Error",
		message:  builder.String(),
		tags:     []string{"stereowatch", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Stereowatch - Test",
		message:  "Notification system test",
		tags:     []string{"stereowatch", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyModeChanged(context.Context, string, string, string) error { return nil }
func (noopService) NotifyHandsFreeApps(context.Context, string, []sessions.Session, bool) error {
	return nil
}
func (noopService) NotifyPersistentProbeFailure(context.Context, string, int) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
