package daemon

import (
	"context"
	"log/slog"

	"stereowatch/internal/endpoint"
	"stereowatch/internal/logging"
	"stereowatch/internal/notifications"
)

// AlertSink forwards monitor health alerts to the notification service.
type AlertSink struct {
	notifier notifications.Service
	logger   *slog.Logger
}

// NewAlertSink wraps a notification service for use as the monitor's alert
// target.
func NewAlertSink(notifier notifications.Service, logger *slog.Logger) *AlertSink {
	return &AlertSink{
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "alerts"),
	}
}

// PersistentProbeFailure notifies that an endpoint's mode has been
// undeterminable for a sustained stretch of polls.
func (a *AlertSink) PersistentProbeFailure(ctx context.Context, ep endpoint.Endpoint, failures int) {
	if err := a.notifier.NotifyPersistentProbeFailure(ctx, ep.Name, failures); err != nil {
		a.logger.Warn("probe failure notification failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String(logging.FieldEndpoint, ep.ID))
	}
}
