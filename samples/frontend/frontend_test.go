package frontend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/plughost/pkg/container"
	"github.com/marmos91/plughost/pkg/module"
)

func TestFrontend_RegistersTransientService(t *testing.T) {
	p := New()
	services := container.New()
	require.NoError(t, p.Install(services))

	resolver, err := services.Build()
	require.NoError(t, err)
	require.NoError(t, p.Configure(context.Background(), resolver, nil))

	first, err := container.Resolve[*Service](resolver)
	require.NoError(t, err)
	second, err := container.Resolve[*Service](resolver)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, "light", first.Theme)
}

func TestFrontend_Registered(t *testing.T) {
	m, ok := module.Default.Lookup(ModuleName)
	require.True(t, ok)
	assert.Same(t, Module, m)

	id, ok := module.Default.IdentityOf(New())
	require.True(t, ok)
	assert.Equal(t, Identity, id)
}
