package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/plughost/internal/cli/output"
	"github.com/marmos91/plughost/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective plughost configuration: file values merged with
environment overrides and defaults.

Examples:
  # Show as YAML
  plughost config show

  # Show as JSON
  plughost config show --output json

  # Show a specific file
  plughost config show --config /etc/plughost/config.yaml`,
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
