package commands

import (
	"fmt"

	"github.com/fedcore/corefed/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample corefed configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/corefed/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  corefed init

  # Initialize with custom path
  corefed init --config /etc/corefed/config.yaml

  # Force overwrite existing config
  corefed init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to set core/broker names and transport")
	fmt.Println("  2. Start a broker:  corefed broker")
	fmt.Println("  3. Start a core:    corefed core")
	fmt.Printf("  4. Or specify custom config: corefed broker --config %s\n", configPath)

	return nil
}
