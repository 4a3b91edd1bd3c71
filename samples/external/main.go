// Command external is a plugin module built outside the host binary.
//
// Build it as a Go plugin and drop the file into a discovery root:
//
//	go build -buildmode=plugin -o plugins/plughost.sample.external.so ./samples/external
//
// The host opens the file and reads its exported Module. Run as a regular
// program it installs and activates the plugin in a runtime of its own.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/marmos91/plughost/pkg/container"
	"github.com/marmos91/plughost/pkg/discovery"
	"github.com/marmos91/plughost/pkg/module"
	"github.com/marmos91/plughost/pkg/plugin"
	"github.com/marmos91/plughost/pkg/runtime"
)

const (
	Identity   = "9f1e6d2c-7b3a-4c58-8e0d-5a4b3c2d1e0f"
	ModuleName = "plughost.sample.external"
)

// Module is the symbol the host looks up.
var Module = &module.Module{
	Name:  ModuleName,
	Types: []*module.TypeDescriptor{module.Describe(Identity, NewPlugin)},
}

// Greeter greets whoever resolves it.
type Greeter struct {
	Greeting string
}

func (g *Greeter) Greet(name string) string {
	return fmt.Sprintf("%s, %s", g.Greeting, name)
}

type Plugin struct {
	plugin.Base
	greeting string
}

func NewPlugin() *Plugin {
	return &Plugin{
		Base: plugin.NewBase(plugin.Metadata{
			Description: "Greeter loaded from an external module file",
			Version:     "0.1.0",
			Author:      "plughost",
		}),
		greeting: "Hello",
	}
}

func (p *Plugin) Install(services container.Registrar) error {
	return container.AddSingleton(services, &Greeter{Greeting: p.greeting})
}

func (p *Plugin) Configure(_ context.Context, r container.Resolver, _ any) error {
	_, err := container.Resolve[*Greeter](r)
	return err
}

// run installs and activates the plugin in a standalone runtime and returns
// its greeting for name.
func run(ctx context.Context, name string) (string, error) {
	catalog := module.NewCatalog()
	if err := catalog.Add(Module); err != nil {
		return "", err
	}

	rt, err := runtime.New(runtime.WithCatalog(catalog), runtime.WithDiscoveryOptions(discovery.WithRoots()))
	if err != nil {
		return "", err
	}
	if _, err := runtime.AddPlugin[*Plugin](ctx, rt); err != nil {
		return "", err
	}
	if _, err := rt.Activate(ctx, nil); err != nil {
		return "", err
	}

	greeter, err := container.Resolve[*Greeter](rt.Resolver())
	if err != nil {
		return "", err
	}
	return greeter.Greet(name), nil
}

func main() {
	msg, err := run(context.Background(), "plughost")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(msg)
}
