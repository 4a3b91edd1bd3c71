package plugins

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/marmos91/plughost/pkg/config"
	"github.com/marmos91/plughost/pkg/discovery"
	"github.com/marmos91/plughost/pkg/plugin"
	"github.com/marmos91/plughost/pkg/registry"
	"github.com/marmos91/plughost/pkg/runtime"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Resolve and install the declared plugins",
	Long: `Parse the plugin declarations of the configuration, resolve each
active one to a plugin type and install it, without activating anything
or serving HTTP. Useful to check a configuration before 'plughost serve'.

Examples:
  plughost plugins discover
  plughost plugins discover --config ./plughost.yaml -o yaml`,
	RunE: runDiscover,
}

// DeclarationStatus is the outcome of one declaration.
type DeclarationStatus struct {
	Name     string `json:"name" yaml:"name"`
	Active   bool   `json:"active" yaml:"active"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Module   string `json:"module,omitempty" yaml:"module,omitempty"`
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	State    string `json:"state" yaml:"state"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// DiscoveryResult is the full discovery outcome.
type DiscoveryResult struct {
	Roots        []string            `json:"roots" yaml:"roots"`
	FallbackUsed bool                `json:"fallback_used" yaml:"fallback_used"`
	Declarations []DeclarationStatus `json:"declarations" yaml:"declarations"`
}

// Headers implements output.TableRenderer.
func (r *DiscoveryResult) Headers() []string {
	return []string{"NAME", "ACTIVE", "TYPE", "MODULE", "STRATEGY", "STATE", "ERROR"}
}

// Rows implements output.TableRenderer.
func (r *DiscoveryResult) Rows() [][]string {
	rows := make([][]string, 0, len(r.Declarations))
	for _, d := range r.Declarations {
		rows = append(rows, []string{
			d.Name, fmt.Sprintf("%t", d.Active), orDash(d.Type), orDash(d.Module),
			orDash(d.Strategy), d.State, orDash(d.Error),
		})
	}
	return rows
}

// summarize pairs every declaration with what discovery and installation
// made of it, in declaration order.
func summarize(report *discovery.Report, reg *registry.Registry, roots []string) *DiscoveryResult {
	res := &DiscoveryResult{Roots: roots, FallbackUsed: report.FallbackUsed}

	failures := make(map[string]string, len(report.Failures))
	for _, f := range report.Failures {
		failures[f.Name] = f.Err.Error()
	}

	used := make([]bool, len(report.Discovered))
	next := func(name string) (discovery.Discovered, bool) {
		for i, d := range report.Discovered {
			if !used[i] && d.Declaration.Name == name {
				used[i] = true
				return d, true
			}
		}
		return discovery.Discovered{}, false
	}

	for _, decl := range report.Declarations {
		s := DeclarationStatus{Name: decl.Name, Active: decl.IsActive, Error: failures[decl.Name]}
		d, found := next(decl.Name)
		switch {
		case found:
			s.Type = d.Result.Type.FullName()
			s.Module = d.Result.Module.Name
			s.Strategy = d.Result.Strategy
			s.State = plugin.Unregistered.String()
			if id, ok := reg.Identity(d.Plugin); ok {
				s.State = reg.State(id).String()
			}
		case !decl.IsActive:
			s.State = "skipped"
		default:
			s.State = "unresolved"
		}
		res.Declarations = append(res.Declarations, s)
	}
	return res
}

func runDiscover(cmd *cobra.Command, args []string) error {
	p, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// Discovery progress is only interesting at debug level here.
	logger.InitWithWriter(cmd.ErrOrStderr(), "WARN", "text", false)

	rt, err := runtime.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	report, addErr := rt.AddPlugins(cmd.Context(), cfg.Source())
	if report == nil {
		return addErr
	}

	if err := p.Print(summarize(report, rt.Registry(), rt.Discoverer().Roots())); err != nil {
		return err
	}
	if report.FallbackUsed {
		p.Warning("\nNo declaration resolved by name; results come from the fallback scan.")
	}
	if addErr != nil {
		return fmt.Errorf("plugin installation failed: %w", addErr)
	}
	return nil
}
