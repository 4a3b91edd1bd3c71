// Package commands implements the plughost CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/plughost/cmd/plughost/commands/config"
	"github.com/marmos91/plughost/cmd/plughost/commands/plugins"

	// Built-in sample modules register themselves in module.Default.
	_ "github.com/marmos91/plughost/samples/backend"
	_ "github.com/marmos91/plughost/samples/frontend"
	_ "github.com/marmos91/plughost/samples/reporting"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "plughost",
	Short: "plughost - plugin lifecycle host",
	Long: `plughost discovers the plugins declared in its configuration, installs
them into a shared collaborator registry and drives them through their
configuration lifecycle before serving HTTP.

Use "plughost [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/plughost/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(config.Cmd)
	rootCmd.AddCommand(plugins.Cmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
