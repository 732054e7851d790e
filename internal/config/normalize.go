package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	if c.Monitor.PollIntervalMs <= 0 {
		c.Monitor.PollIntervalMs = defaultPollIntervalMs
	}
	if c.Monitor.DebounceCount <= 0 {
		c.Monitor.DebounceCount = defaultDebounceCount
	}
	if c.Monitor.ProbeTimeoutMs <= 0 {
		c.Monitor.ProbeTimeoutMs = defaultProbeTimeoutMs
	}
	if c.Monitor.AttributionTimeoutMs <= 0 {
		c.Monitor.AttributionTimeoutMs = defaultAttributionTimeoutMs
	}
	if c.Monitor.FailureThreshold <= 0 {
		c.Monitor.FailureThreshold = defaultFailureThreshold
	}
	if c.Events.RetentionDays <= 0 {
		c.Events.RetentionDays = defaultEventRetentionDays
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeoutSeconds
	}

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
