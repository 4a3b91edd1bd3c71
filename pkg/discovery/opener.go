package discovery

import (
	"plugin"
)

// ModuleSymbol is the symbol a module file exports. It must be a
// *module.Module or a func() *module.Module:
//
//	package main
//
//	var Module = &module.Module{Name: "weather", Types: ...}
const ModuleSymbol = "Module"

// Symbols is an opened module file.
type Symbols interface {
	Lookup(name string) (any, error)
}

// Opener opens module files.
type Opener interface {
	Open(path string) (Symbols, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Symbols, error)

func (f OpenerFunc) Open(path string) (Symbols, error) { return f(path) }

// GoPluginOpener opens files built with -buildmode=plugin.
// Files opened this way stay mapped for the life of the process.
type GoPluginOpener struct{}

func (GoPluginOpener) Open(path string) (Symbols, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return goPluginSymbols{p}, nil
}

type goPluginSymbols struct {
	p *plugin.Plugin
}

func (s goPluginSymbols) Lookup(name string) (any, error) {
	return s.p.Lookup(name)
}
