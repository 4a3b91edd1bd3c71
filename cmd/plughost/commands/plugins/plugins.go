// Package plugins implements the plugin inspection subcommands.
package plugins

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/plughost/internal/cli/output"
)

var outputFormat string

// Cmd is the plugins subcommand.
var Cmd = &cobra.Command{
	Use:   "plugins",
	Short: "Inspect plugin modules and declarations",
	Long: `Inspect the plugin modules known to plughost and check how the
declarations in the configuration resolve.

Subcommands:
  list      List catalog modules and their plugin types
  discover  Resolve and install the declared plugins without serving`,
}

func init() {
	Cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table|json|yaml)")

	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(discoverCmd)
}

func newPrinter(cmd *cobra.Command) (*output.Printer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format, false), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
