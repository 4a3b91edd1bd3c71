// Package frontend is a sample plugin that exposes a transient Service.
package frontend

import (
	"context"

	"github.com/marmos91/plughost/pkg/container"
	"github.com/marmos91/plughost/pkg/module"
	"github.com/marmos91/plughost/pkg/plugin"
)

const (
	Identity   = "4a8c6f2e-1b3d-4e5f-9a7c-8d6e5f4a3b2c"
	ModuleName = "plughost.sample.frontend"
)

var Module = &module.Module{
	Name:  ModuleName,
	Types: []*module.TypeDescriptor{module.Describe(Identity, New)},
}

func init() {
	module.Register(Module)
}

// Service renders pages for the frontend. A new one is created for every
// resolution.
type Service struct {
	Theme string
}

type Plugin struct {
	plugin.Base
	theme string
}

func New() *Plugin {
	return &Plugin{
		Base: plugin.NewBase(plugin.Metadata{
			Description: "Frontend page service",
			Version:     "1.0.0",
			Author:      "plughost",
		}),
		theme: "light",
	}
}

func (p *Plugin) Install(services container.Registrar) error {
	return container.AddTransient(services, func(container.Resolver) (*Service, error) {
		return &Service{Theme: p.theme}, nil
	})
}

func (p *Plugin) Configure(context.Context, container.Resolver, any) error {
	return nil
}
