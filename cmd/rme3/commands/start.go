package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobtread/rme3/internal/logger"
	"github.com/jacobtread/rme3/internal/telemetry"
	"github.com/jacobtread/rme3/pkg/adapter/blaze"
	"github.com/jacobtread/rme3/pkg/api"
	"github.com/jacobtread/rme3/pkg/config"
	"github.com/jacobtread/rme3/pkg/metrics"
	"github.com/jacobtread/rme3/pkg/metrics/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	pidFile     string
	watchConfig bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Blaze server",
	Long: `Start the rme3 Blaze server in the foreground.

Without --config the default location $XDG_CONFIG_HOME/rme3/config.yaml is
used when it exists, otherwise built-in defaults.

Examples:
  # Start with defaults (listens on 127.0.0.1:14219)
  rme3 start

  # Start with custom config file
  rme3 start --config /etc/rme3/config.yaml

  # Start with environment variable overrides
  RME3_LOGGING_LEVEL=DEBUG RME3_BLAZE_PORT=14220 rme3 start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Write the process ID to this file while running")
	startCmd.Flags().BoolVar(&watchConfig, "watch", true, "Apply logging changes from the config file without restarting")
}

func loadStartConfig() (*config.Config, error) {
	if GetConfigFile() != "" {
		return config.MustLoad(GetConfigFile())
	}
	return config.Load("")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadStartConfig()
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("Telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(profilingConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("Profiling shutdown error", logger.KeyError, err)
		}
	}()

	source := getConfigSource(GetConfigFile())
	logger.Info("Configuration loaded", "source", source)
	logger.Info("Log level", "level", logger.GetLevel().String(), "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if cfg.Telemetry.Profiling.Enabled {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "path", "/metrics", "api_enabled", cfg.API.Enabled)
	}

	server, err := blaze.New(cfg.Blaze, blaze.WithMetrics(prometheus.NewBlazeMetrics()))
	if err != nil {
		return err
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Serve(gctx)
	})

	if cfg.API.Enabled {
		apiServer := api.NewServer(cfg.API, server)
		g.Go(func() error {
			return apiServer.Start(gctx)
		})
	}

	if watchConfig && source != "defaults" {
		g.Go(func() error {
			err := config.Watch(gctx, source, applyReload)
			if err != nil {
				logger.Warn("Configuration watcher stopped", logger.KeyError, err)
			}
			return nil
		})
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		logger.Error("Server stopped with error", logger.KeyError, err)
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// applyReload applies the settings that can change without a restart.
func applyReload(cfg *config.Config) {
	if logLevel == "" {
		logger.SetLevel(cfg.Logging.Level)
	}
	logger.SetFormat(cfg.Logging.Format)
	logger.Info("Logging settings applied", "level", logger.GetLevel().String(), "format", cfg.Logging.Format)
}
