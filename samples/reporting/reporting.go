// Package reporting is a sample plugin that exposes a scoped Service.
package reporting

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/marmos91/plughost/pkg/container"
	"github.com/marmos91/plughost/pkg/module"
	"github.com/marmos91/plughost/pkg/plugin"
)

const (
	Identity   = "e1c3a2d4-5f6b-47d8-9a1b-2c3d4e5f6a7b"
	ModuleName = "plughost.sample.reporting"
)

var Module = &module.Module{
	Name:  ModuleName,
	Types: []*module.TypeDescriptor{module.Describe(Identity, New)},
}

func init() {
	module.Register(Module)
}

// Service collects report lines for one scope.
type Service struct {
	mu    sync.Mutex
	lines []string
}

// Add appends a formatted line to the report.
func (s *Service) Add(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, fmt.Sprintf(format, args...))
}

// Lines returns the report so far.
func (s *Service) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

type Plugin struct {
	plugin.Base

	mu   sync.Mutex
	last []string
}

func New() *Plugin {
	return &Plugin{Base: plugin.NewBase(plugin.Metadata{
		Description: "Per-scope report collector",
		Version:     "1.0.0",
		Author:      "plughost",
	})}
}

func (p *Plugin) Install(services container.Registrar) error {
	return container.AddScoped(services, func(container.Resolver) (*Service, error) {
		return &Service{}, nil
	})
}

// Configure writes the installed plugins to a report in its own scope.
func (p *Plugin) Configure(ctx context.Context, r container.Resolver, _ any) error {
	if provider, ok := r.(*container.Provider); ok {
		r = provider.Scope()
	}

	report, err := container.Resolve[*Service](r)
	if err != nil {
		return err
	}
	plugins, err := container.ResolveAll[plugin.Plugin](r)
	if err != nil {
		return err
	}
	for _, installed := range plugins {
		report.Add("%s %v", installed.Name(), installed.SourceModules())
	}

	p.mu.Lock()
	p.last = report.Lines()
	p.mu.Unlock()
	logger.DebugCtx(ctx, "Installed plugins reported", logger.Count(len(plugins)))
	return nil
}

// LastReport returns the report written by the last Configure.
func (p *Plugin) LastReport() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.last...)
}
