package config

import (
	"fmt"

	"github.com/jacobtread/rme3/internal/cli/output"
	"github.com/jacobtread/rme3/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the rme3 configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  rme3 config validate

  # Validate specific config file
  rme3 config validate --config /etc/rme3/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	p := output.NewPrinter(cmd.OutOrStdout(), output.FormatTable)
	p.Printf("Configuration file: %s\n", displayPath)
	p.Success("Validation: OK")

	for _, w := range warnings(cfg) {
		p.Warning("Warning: " + w)
	}

	p.Printf("\nConfiguration summary:\n")
	return output.KeyValueTable(p.Writer(), [][2]string{
		{"Blaze listener", fmt.Sprintf("%s:%d", cfg.Blaze.BindAddress, cfg.Blaze.Port)},
		{"Max packet size", cfg.Blaze.MaxPacketSize.String()},
		{"API", enabled(cfg.API.Enabled, fmt.Sprintf("port %d", cfg.API.Port))},
		{"Metrics", enabled(cfg.Metrics.Enabled, "/metrics")},
		{"Telemetry", enabled(cfg.Telemetry.Enabled, cfg.Telemetry.Endpoint)},
		{"Log level", cfg.Logging.Level},
	})
}

// warnings lists settings that are valid but probably not intended.
func warnings(cfg *config.Config) []string {
	var out []string
	if cfg.Metrics.Enabled && !cfg.API.Enabled {
		out = append(out, "metrics are enabled but the API that serves /metrics is disabled")
	}
	if cfg.Blaze.Timeouts.Idle == 0 {
		out = append(out, "blaze.timeouts.idle is 0: idle clients are never disconnected")
	}
	if cfg.Blaze.MaxConnections == 0 {
		out = append(out, "blaze.max_connections is 0: connections are unlimited")
	}
	return out
}

func enabled(on bool, detail string) string {
	if !on {
		return "disabled"
	}
	return "enabled (" + detail + ")"
}
