package commands

import (
	"fmt"

	"github.com/jacobtread/rme3/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample rme3 configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/rme3/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  rme3 init

  # Initialize with custom path
  rme3 init --config /etc/rme3/config.yaml

  # Force overwrite existing config
  rme3 init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()

	var err error
	if configPath != "" {
		err = config.InitConfigToPath(configPath, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Edit the configuration file to customize your setup")
	_, _ = fmt.Fprintln(out, "  2. Start the server with: rme3 start")
	_, _ = fmt.Fprintf(out, "  3. Or specify custom config: rme3 start --config %s\n", configPath)
	return nil
}
