package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateMonitor() error {
	if c.Monitor.ProbeTimeoutMs >= c.Monitor.PollIntervalMs {
		return fmt.Errorf("monitor.probe_timeout_ms (%d) must be below monitor.poll_interval_ms (%d)",
			c.Monitor.ProbeTimeoutMs, c.Monitor.PollIntervalMs)
	}
	if c.Monitor.DebounceCount > 20 {
		return fmt.Errorf("monitor.debounce_count %d is unreasonably high; transitions would take %dms+ to confirm",
			c.Monitor.DebounceCount, c.Monitor.DebounceCount*c.Monitor.PollIntervalMs)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
