package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/plughost/pkg/config"
	"github.com/marmos91/plughost/pkg/discovery"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a plughost configuration file.

Checks for syntax errors, missing required fields and invalid values, then
prints the discovery settings and the plugin declarations that were read.

Examples:
  plughost config validate
  plughost config validate --config /etc/plughost/config.yaml`,
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

	decls := discovery.Parse(cfg.Source())
	var active int
	for _, d := range decls {
		if d.IsActive {
			active++
		}
	}

	var warnings []string
	if len(decls) == 0 {
		warnings = append(warnings, "No plugins declared")
	} else if active == 0 {
		warnings = append(warnings, "No plugin is active")
	}
	if cfg.Discovery.FallbackScan && active > 0 && len(cfg.Discovery.SearchPaths) == 0 && cfg.Discovery.BaseDir == "" {
		warnings = append(warnings, "Fallback scan enabled but only the working directory will be scanned")
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(w, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(w, "\nWarnings:")
		for _, msg := range warnings {
			_, _ = fmt.Fprintf(w, "  - %s\n", msg)
		}
	}

	_, _ = fmt.Fprintln(w, "\nConfiguration summary:")
	_, _ = fmt.Fprintf(w, "  Server port:      %d\n", cfg.Server.Port)
	_, _ = fmt.Fprintf(w, "  Log level:        %s\n", cfg.Logging.Level)
	_, _ = fmt.Fprintf(w, "  Module extension: %s\n", cfg.Discovery.Extension)
	_, _ = fmt.Fprintf(w, "  Search paths:     %s\n", orNone(strings.Join(cfg.Discovery.SearchPaths, ", ")))
	_, _ = fmt.Fprintf(w, "  Fallback scan:    %t\n", cfg.Discovery.FallbackScan)
	_, _ = fmt.Fprintf(w, "  Failure policy:   %s\n", cfg.Discovery.ConfigurePolicy)
	_, _ = fmt.Fprintf(w, "  Plugins:          %d declared, %d active\n", len(decls), active)
	for _, d := range decls {
		mark := " "
		if d.IsActive {
			mark = "*"
		}
		_, _ = fmt.Fprintf(w, "    %s %s\n", mark, d.Name)
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
