package config

import (
	"time"
)

// ApplyDefaults fills zero-valued fields with production defaults. It is
// idempotent and never overwrites an explicitly set value.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = "127.0.0.1:8384"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	// WriteTimeout stays zero by default: SSE responses outlive any
	// reasonable fixed bound.
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	if cfg.Transport.MaxRetries == 0 {
		cfg.Transport.MaxRetries = 3
	}
	if cfg.Transport.BackoffBase == 0 {
		cfg.Transport.BackoffBase = 500 * time.Millisecond
	}
	if cfg.Transport.BackoffCap == 0 {
		cfg.Transport.BackoffCap = 10 * time.Second
	}
	if cfg.Transport.Timeout == 0 {
		cfg.Transport.Timeout = 60 * time.Second
	}

	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 30 * time.Minute
	}
	if cfg.Session.MaxSessions == 0 {
		cfg.Session.MaxSessions = 256
	}

	if cfg.Heartbeat.MaxBeforeProgress == 0 {
		cfg.Heartbeat.MaxBeforeProgress = 30
	}
	if cfg.Heartbeat.MaxAfterProgress == 0 {
		cfg.Heartbeat.MaxAfterProgress = 10
	}
	if cfg.Heartbeat.IdleBeforeProgress == 0 {
		cfg.Heartbeat.IdleBeforeProgress = 120 * time.Second
	}
	if cfg.Heartbeat.IdleAfterProgress == 0 {
		cfg.Heartbeat.IdleAfterProgress = 30 * time.Second
	}

	if cfg.Models.RefreshSchedule == "" {
		cfg.Models.RefreshSchedule = "@every 1h"
	}
	if cfg.Models.CacheTTL == 0 {
		cfg.Models.CacheTTL = 15 * time.Minute
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = "/metrics"
	}
}
