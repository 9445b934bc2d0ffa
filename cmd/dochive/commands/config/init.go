package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dochive/dochive/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a sample configuration file",
	Long: `Create a dochive configuration file populated with defaults.

By default the file is created at $XDG_CONFIG_HOME/dochive/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize at the default location
  dochive config init

  # Initialize at a custom path
  dochive config init --config /etc/dochive/config.yaml

  # Overwrite an existing config
  dochive config init --force`,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the service with: dochive serve")
	fmt.Printf("  3. Or specify custom config: dochive serve --config %s\n", configPath)
	return nil
}
