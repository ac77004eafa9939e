package config

import (
	"github.com/jacobtread/rme3/internal/cli/output"
	"github.com/jacobtread/rme3/pkg/config"
	"github.com/spf13/cobra"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the rme3 configuration after defaults and environment
overrides have been applied.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show config as YAML
  rme3 config show

  # Show as JSON
  rme3 config show --output json

  # See the effect of an override
  RME3_BLAZE_PORT=15000 rme3 config show`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	default:
		return output.PrintYAML(cmd.OutOrStdout(), cfg)
	}
}
