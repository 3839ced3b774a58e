// Package commands implements the CLI commands for corefed, the
// HELICS-style co-simulation core/broker kernel runtime.
package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fedcore/corefed/cmd/corefed/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "corefed",
	Short: "corefed - distributed co-simulation core/broker runtime",
	Long: `corefed is a HELICS-style distributed co-simulation runtime: a tree of
brokers routes ActionMessages between cores, and each core hosts the
federates connected to it, advancing their logical time in lockstep
under a time-coordination protocol.

Use "corefed [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to
// happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/corefed/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(brokerCmd)
	rootCmd.AddCommand(coreCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(config.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
}

// normalizeFlagName treats underscores and hyphens as interchangeable
// in flag names, so --broker_port and --broker-port both resolve to
// the same flag regardless of which one a user or an existing
// federate.yaml-derived script happens to type.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
