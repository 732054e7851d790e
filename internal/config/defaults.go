package config

const (
	defaultLogDir               = "~/.local/share/stereowatch/logs"
	defaultPollIntervalMs       = 1000
	defaultDebounceCount        = 2
	defaultProbeTimeoutMs       = 500
	defaultAttributionTimeoutMs = 1000
	defaultFailureThreshold     = 10
	defaultEventRetentionDays   = 30
	defaultNotifyTimeoutSeconds = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Monitor: Monitor{
			PollIntervalMs:       defaultPollIntervalMs,
			DebounceCount:        defaultDebounceCount,
			ProbeTimeoutMs:       defaultProbeTimeoutMs,
			AttributionTimeoutMs: defaultAttributionTimeoutMs,
			FailureThreshold:     defaultFailureThreshold,
		},
		Events: Events{
			RetentionDays: defaultEventRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeoutSeconds,
			ModeChange:     true,
			Apps:           true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
