package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/plughost/internal/cli/prompt"
	"github.com/marmos91/plughost/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample plughost configuration file.

By default the file is created at $XDG_CONFIG_HOME/plughost/config.yaml.
Use --config to choose another path. An existing file is only replaced
after confirmation, or with --force.

Examples:
  plughost init
  plughost init --config ./plughost.yaml
  plughost init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file without asking")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	force := initForce
	if _, err := os.Stat(configPath); err == nil {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Overwrite %s", configPath), initForce)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		if !ok {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted, configuration left unchanged.")
			return nil
		}
		force = true
	}

	if err := config.InitConfigToPath(configPath, force); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Declare your plugins under 'plugins:'")
	_, _ = fmt.Fprintln(out, "  2. Check what resolves with: plughost plugins discover")
	_, _ = fmt.Fprintf(out, "  3. Start serving with: plughost serve --config %s\n", configPath)
	return nil
}
