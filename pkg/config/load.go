package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads from a YAML file and then applies
// GANYMEDE_SECTION_FIELD environment overrides, which always win over
// file values. The result is re-validated.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies GANYMEDE_* environment variables.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if val := os.Getenv(key); val != "" {
			if d, err := time.ParseDuration(val); err == nil {
				*dst = d
			}
		}
	}
	setInt := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				*dst = i
			}
		}
	}
	setUint := func(key string, dst *uint) {
		if val := os.Getenv(key); val != "" {
			if i, err := strconv.ParseUint(val, 10, 32); err == nil {
				*dst = uint(i)
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if val := os.Getenv(key); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				*dst = b
			}
		}
	}

	setString("GANYMEDE_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	setDuration("GANYMEDE_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("GANYMEDE_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("GANYMEDE_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	setDuration("GANYMEDE_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	setString("GANYMEDE_BACKEND_BASE_URL", &cfg.Backend.BaseURL)
	setString("GANYMEDE_BACKEND_PRIVACY_BASE_URL", &cfg.Backend.PrivacyBaseURL)
	setBool("GANYMEDE_BACKEND_USE_PRIVACY", &cfg.Backend.UsePrivacy)
	setString("GANYMEDE_BACKEND_TOKEN", &cfg.Backend.Token)
	setString("GANYMEDE_BACKEND_CHECKSUM", &cfg.Backend.Checksum)

	setInt("GANYMEDE_TRANSPORT_MAX_RETRIES", &cfg.Transport.MaxRetries)
	setDuration("GANYMEDE_TRANSPORT_BACKOFF_BASE", &cfg.Transport.BackoffBase)
	setDuration("GANYMEDE_TRANSPORT_BACKOFF_CAP", &cfg.Transport.BackoffCap)
	setDuration("GANYMEDE_TRANSPORT_TIMEOUT", &cfg.Transport.Timeout)

	setDuration("GANYMEDE_SESSION_TTL", &cfg.Session.TTL)
	setInt("GANYMEDE_SESSION_MAX_SESSIONS", &cfg.Session.MaxSessions)

	setUint("GANYMEDE_HEARTBEAT_MAX_BEFORE_PROGRESS", &cfg.Heartbeat.MaxBeforeProgress)
	setUint("GANYMEDE_HEARTBEAT_MAX_AFTER_PROGRESS", &cfg.Heartbeat.MaxAfterProgress)
	setDuration("GANYMEDE_HEARTBEAT_IDLE_BEFORE_PROGRESS", &cfg.Heartbeat.IdleBeforeProgress)
	setDuration("GANYMEDE_HEARTBEAT_IDLE_AFTER_PROGRESS", &cfg.Heartbeat.IdleAfterProgress)

	setString("GANYMEDE_MODELS_REFRESH_SCHEDULE", &cfg.Models.RefreshSchedule)
	setDuration("GANYMEDE_MODELS_CACHE_TTL", &cfg.Models.CacheTTL)

	setString("GANYMEDE_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("GANYMEDE_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	setBool("GANYMEDE_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	setString("GANYMEDE_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
}
