package commands

import (
	"fmt"

	"github.com/jacobtread/rme3/internal/logger"
	"github.com/jacobtread/rme3/internal/telemetry"
	"github.com/jacobtread/rme3/pkg/config"
)

const serviceName = "rme3"

// InitLogger initializes the structured logger from configuration. The
// --log-level flag wins over the file.
func InitLogger(cfg *config.Config) error {
	level := cfg.Logging.Level
	if logLevel != "" {
		if _, ok := logger.ParseLevel(logLevel); !ok {
			return fmt.Errorf("invalid --log-level %q", logLevel)
		}
		level = logLevel
	}

	loggerCfg := logger.Config{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
}

func profilingConfig(cfg *config.Config) telemetry.ProfilingConfig {
	return telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
