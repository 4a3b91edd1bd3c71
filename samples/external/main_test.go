package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/plughost/pkg/discovery"
	"github.com/marmos91/plughost/pkg/module"
)

func TestRun(t *testing.T) {
	msg, err := run(context.Background(), "tester")
	require.NoError(t, err)
	assert.Equal(t, "Hello, tester", msg)
}

// TestModuleSymbol loads Module the way the host loads a plugin file.
func TestModuleSymbol(t *testing.T) {
	opener := discovery.OpenerFunc(func(string) (discovery.Symbols, error) {
		return symbols{discovery.ModuleSymbol: &Module}, nil
	})

	catalog := module.NewCatalog()
	loader := discovery.NewLoader(catalog, opener, ".so")
	m, err := loader.Load("/plugins/" + ModuleName + ".so")
	require.NoError(t, err)
	assert.Equal(t, ModuleName, m.Name)

	id, ok := catalog.IdentityOf(NewPlugin())
	require.True(t, ok)
	assert.Equal(t, Identity, id)
}

type symbols map[string]any

func (s symbols) Lookup(name string) (any, error) {
	if v, ok := s[name]; ok {
		return v, nil
	}
	return nil, assert.AnError
}
