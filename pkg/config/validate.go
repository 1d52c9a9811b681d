package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for internal consistency. It expects
// defaults to have been applied.
func Validate(cfg *Config) error {
	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address is required")
	}

	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if err := validateURL("backend.base_url", cfg.Backend.BaseURL); err != nil {
		return err
	}
	if cfg.Backend.PrivacyBaseURL != "" {
		if err := validateURL("backend.privacy_base_url", cfg.Backend.PrivacyBaseURL); err != nil {
			return err
		}
	}
	if cfg.Backend.UsePrivacy && cfg.Backend.PrivacyBaseURL == "" {
		return fmt.Errorf("backend.use_privacy requires backend.privacy_base_url")
	}

	if cfg.Transport.MaxRetries < 0 {
		return fmt.Errorf("transport.max_retries must not be negative")
	}
	if cfg.Transport.BackoffBase > cfg.Transport.BackoffCap {
		return fmt.Errorf("transport.backoff_base %s exceeds backoff_cap %s",
			cfg.Transport.BackoffBase, cfg.Transport.BackoffCap)
	}

	if cfg.Session.MaxSessions < 1 {
		return fmt.Errorf("session.max_sessions must be at least 1")
	}

	if cfg.Heartbeat.IdleAfterProgress > cfg.Heartbeat.IdleBeforeProgress {
		return fmt.Errorf("heartbeat.idle_after_progress must not exceed idle_before_progress")
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level %q is not one of debug, info, warn, error",
			cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format %q is not json or text",
			cfg.Telemetry.Logging.Format)
	}

	if cfg.Telemetry.Metrics.Enabled && !strings.HasPrefix(cfg.Telemetry.Metrics.Path, "/") {
		return fmt.Errorf("telemetry.metrics.path must start with /")
	}

	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", field, raw)
	}
	return nil
}
