package plugins

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/plughost/pkg/module"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog modules and plugin types",
	Long: `List every module in the plugin catalog with the plugin types it
exports. Built-in modules have no path.

Examples:
  plughost plugins list
  plughost plugins list -o json`,
	RunE: runList,
}

// TypeInfo describes one plugin type of a catalog module.
type TypeInfo struct {
	Module   string `json:"module" yaml:"module"`
	Type     string `json:"type" yaml:"type"`
	Identity string `json:"identity,omitempty" yaml:"identity,omitempty"`
	Concrete bool   `json:"concrete" yaml:"concrete"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
}

// TypeList is the table form of the catalog listing.
type TypeList []TypeInfo

// Headers implements output.TableRenderer.
func (l TypeList) Headers() []string {
	return []string{"MODULE", "TYPE", "IDENTITY", "CONCRETE", "PATH"}
}

// Rows implements output.TableRenderer.
func (l TypeList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, t := range l {
		rows = append(rows, []string{
			t.Module, t.Type, orDash(t.Identity), strconv.FormatBool(t.Concrete), orDash(t.Path),
		})
	}
	return rows
}

// catalogTypes flattens the catalog into one entry per plugin type, in
// module registration order.
func catalogTypes(c *module.Catalog) TypeList {
	var list TypeList
	for _, m := range c.Modules() {
		for _, d := range m.Types {
			list = append(list, TypeInfo{
				Module:   m.Name,
				Type:     d.FullName(),
				Identity: d.Identity,
				Concrete: d.Concrete(),
				Path:     m.Path,
			})
		}
	}
	return list
}

func runList(cmd *cobra.Command, args []string) error {
	p, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	list := catalogTypes(module.Default)
	if len(list) == 0 {
		p.Println("No plugin modules registered.")
		return nil
	}
	return p.Print(list)
}
