package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ganymede-hq/ganymede/pkg/cli"
	"ganymede-hq/ganymede/pkg/config"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file without starting the server.

The validate command applies defaults and environment overrides exactly as
the run command does, then reports the effective configuration.

Examples:
  # Validate the default config
  ganymede validate

  # Validate a specific file
  ganymede validate --config /etc/ganymede/config.yaml

  # Print the effective configuration as JSON
  ganymede validate --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

// effectiveConfig is the validate command's report of what the server
// would actually run with. Secrets are elided.
type effectiveConfig struct {
	ListenAddress   string `json:"listen_address"`
	BackendURL      string `json:"backend_url"`
	UsePrivacy      bool   `json:"use_privacy"`
	TokenConfigured bool   `json:"token_configured"`
	MaxRetries      int    `json:"max_retries"`
	MaxSessions     int    `json:"max_sessions"`
	LogLevel        string `json:"log_level"`
	MetricsEnabled  bool   `json:"metrics_enabled"`
}

func (e effectiveConfig) String() string {
	return fmt.Sprintf("listen=%s backend=%s privacy=%t token=%t retries=%d sessions=%d log=%s metrics=%t",
		e.ListenAddress, e.BackendURL, e.UsePrivacy, e.TokenConfigured,
		e.MaxRetries, e.MaxSessions, e.LogLevel, e.MetricsEnabled)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	report := effectiveConfig{
		ListenAddress:   cfg.Server.ListenAddress,
		BackendURL:      cfg.Backend.BaseURL,
		UsePrivacy:      cfg.Backend.UsePrivacy,
		TokenConfigured: cfg.Backend.Token != "",
		MaxRetries:      cfg.Transport.MaxRetries,
		MaxSessions:     cfg.Session.MaxSessions,
		LogLevel:        cfg.Telemetry.Logging.Level,
		MetricsEnabled:  cfg.Telemetry.Metrics.Enabled,
	}

	fmt.Println("✓ Configuration valid")
	formatter := cli.NewFormatter(cli.OutputFormat(validateFlags.format))
	return formatter.FormatTo(cmd.OutOrStdout(), report)
}
