// Package plugin defines the contract implemented by every pluggable
// component, together with the embeddable Base that supplies the mutable
// descriptive state and the default lifecycle hooks.
//
// A plugin is driven through three phases:
//
//   - Install registers the plugin's capabilities into the collaborator
//     registry. It runs exactly once, while the plugin is added.
//   - ConfigureContext is optional (see ContextConfigurer) and runs before the
//     collaborator registry is built.
//   - Configure receives the built registry and an optional host reference.
//     Implementations must tolerate a nil or unrecognized host.
package plugin

import (
	"context"

	"github.com/marmos91/plughost/pkg/container"
)

// Plugin is the contract a pluggable component implements.
type Plugin interface {
	Name() string
	SetName(name string)

	IsActive() bool
	SetActive(active bool)

	// SourceModules lists the modules this plugin was loaded from, in the
	// order they were recorded.
	SourceModules() []string
	AddSourceModule(module string)

	Metadata() Metadata

	Install(services container.Registrar) error
	Configure(ctx context.Context, services container.Resolver, host any) error
}

// ContextConfigurer is implemented by plugins that need to register
// context-building work before the collaborator registry is built.
type ContextConfigurer interface {
	ConfigureContext(ctx context.Context, services container.Registrar) error
}

// Metadata is optional descriptive information about a plugin.
type Metadata struct {
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Declaration is one configured plugin entry, before resolution.
type Declaration struct {
	Name     string `mapstructure:"name" json:"name" yaml:"name"`
	IsActive bool   `mapstructure:"isactive" json:"isActive" yaml:"isActive"`
}
