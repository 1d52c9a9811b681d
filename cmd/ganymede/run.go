package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"ganymede-hq/ganymede/pkg/agent"
	"ganymede-hq/ganymede/pkg/backend"
	"ganymede-hq/ganymede/pkg/cli"
	"ganymede-hq/ganymede/pkg/config"
	"ganymede-hq/ganymede/pkg/models"
	"ganymede-hq/ganymede/pkg/proxy/handlers"
	"ganymede-hq/ganymede/pkg/server"
	"ganymede-hq/ganymede/pkg/session"
	"ganymede-hq/ganymede/pkg/telemetry/logging"
	"ganymede-hq/ganymede/pkg/telemetry/metrics"
	"ganymede-hq/ganymede/pkg/translator"
	"ganymede-hq/ganymede/pkg/transport"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway server",
	Long: `Start the gateway server with the specified configuration.

The server accepts OpenAI chat-completion requests on the configured
address and translates them to the agent backend's streaming protocol.

Examples:
  # Start with default config
  ganymede run

  # Start with custom config
  ganymede run --config /etc/ganymede/config.yaml

  # Override listen address
  ganymede run --listen 0.0.0.0:8384

  # Validate config without starting the server
  ganymede run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

// backendAdapter narrows *backend.Client to what the translator needs.
type backendAdapter struct {
	client *backend.Client
}

func (a backendAdapter) Run(ctx context.Context, msg *agent.ClientMessage) (translator.ServerStream, error) {
	stream, err := a.client.Run(ctx, msg)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (a backendAdapter) Append(ctx context.Context, msg *agent.ClientMessage) error {
	return a.client.Append(ctx, msg)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Ganymede v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Session layer
	manager := session.NewManager(session.ManagerConfig{
		TTL:         cfg.Session.TTL,
		MaxSessions: cfg.Session.MaxSessions,
	}, logger)
	defer manager.Shutdown()

	monitor := session.NewMonitor(session.MonitorConfig{
		MaxHeartbeatsBeforeProgress: cfg.Heartbeat.MaxBeforeProgress,
		MaxHeartbeatsAfterProgress:  cfg.Heartbeat.MaxAfterProgress,
		IdleBeforeProgress:          cfg.Heartbeat.IdleBeforeProgress,
		IdleAfterProgress:           cfg.Heartbeat.IdleAfterProgress,
	})

	// Metrics
	collector := metrics.NewCollector(manager.Len)
	manager.SetCloseHook(collector.ObserveSessionClose)

	// Backend client
	unary := transport.New(nil, transport.Options{
		MaxRetries:  cfg.Transport.MaxRetries,
		BackoffBase: cfg.Transport.BackoffBase,
		BackoffCap:  cfg.Transport.BackoffCap,
		Timeout:     cfg.Transport.Timeout,
	}, logger)
	unary.SetObserver(collector.ObserveTransportAttempts)

	client := backend.New(backend.Config{
		BaseURL:        cfg.Backend.BaseURL,
		PrivacyBaseURL: cfg.Backend.PrivacyBaseURL,
		UsePrivacy:     cfg.Backend.UsePrivacy,
		Token:          cfg.Backend.Token,
		Checksum:       cfg.Backend.Checksum,
	}, unary, nil, logger)
	fmt.Println("✓ Backend client initialized")

	// Model catalog
	fetch := func(ctx context.Context) ([]models.Model, error) {
		list, err := client.ListModels(ctx)
		if err == nil {
			collector.ObserveModelListRefresh()
		}
		return list, err
	}
	catalog := models.NewCatalog(fetch, cfg.Models.CacheTTL, logger)
	defer catalog.Close()
	if cfg.Models.RefreshSchedule != "" {
		if err := catalog.StartRefresh(cfg.Models.RefreshSchedule); err != nil {
			return cli.NewConfigError("models.refresh_schedule", err.Error())
		}
	}

	// Translator
	tr := translator.New(backendAdapter{client: client}, manager, monitor, catalog, logger)
	tr.SetUpdateHook(collector.ObserveStreamUpdate)

	// Config hot reload. Most fields need a restart; the model catalog is
	// refreshed in place.
	watcher, err := config.WatchConfig(cfgFile, logger, func(next *config.Config) {
		catalog.Invalidate()
		logger.Info("config change applied to model catalog; other changes need a restart")
	})
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err)
	} else {
		defer watcher.Close()
	}

	handlers.Version = Version
	handlers.Commit = GitCommit
	handlers.BuildTime = BuildDate

	srv := server.New(cfg.Server, cfg.Telemetry.Metrics, server.Deps{
		Translator:      tr,
		Catalog:         catalog,
		SessionCount:    manager.Len,
		Metrics:         collector.Handler(),
		RequestObserver: collector.ObserveRequest,
		Logger:          logger,
	})

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/healthz\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, metricsPath(cfg))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(cmd.Context()); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Println("✓ Server stopped")
	return nil
}

func metricsPath(cfg *config.Config) string {
	if cfg.Telemetry.Metrics.Path != "" {
		return cfg.Telemetry.Metrics.Path
	}
	return "/metrics"
}
