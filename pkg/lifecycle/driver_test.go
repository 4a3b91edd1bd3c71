package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/marmos91/plughost/pkg/container"
	"github.com/marmos91/plughost/pkg/module"
	"github.com/marmos91/plughost/pkg/plugin"
	"github.com/marmos91/plughost/pkg/registry"
)

const (
	idA = "5c0f3e1a-9b7d-4c2e-8f6a-1d3b5e7f9a01"
	idB = "5c0f3e1a-9b7d-4c2e-8f6a-1d3b5e7f9a02"
	idC = "5c0f3e1a-9b7d-4c2e-8f6a-1d3b5e7f9a03"
)

// recorder appends every hook call to a shared journal.
type recorder struct {
	plugin.Base
	tag        string
	journal    *[]string
	ctxErr     error
	cfgErr     error
	onContext  func(ctx context.Context, services container.Registrar) error
	onConfig   func(ctx context.Context, r container.Resolver, host any) error
	hostSeen   any
	configured int
}

func (r *recorder) Install(container.Registrar) error {
	*r.journal = append(*r.journal, "install:"+r.tag)
	return nil
}

func (r *recorder) ConfigureContext(ctx context.Context, services container.Registrar) error {
	*r.journal = append(*r.journal, "context:"+r.tag)
	if r.onContext != nil {
		if err := r.onContext(ctx, services); err != nil {
			return err
		}
	}
	return r.ctxErr
}

func (r *recorder) Configure(ctx context.Context, resolver container.Resolver, host any) error {
	*r.journal = append(*r.journal, "configure:"+r.tag)
	r.hostSeen = host
	r.configured++
	if r.onConfig != nil {
		if err := r.onConfig(ctx, resolver, host); err != nil {
			return err
		}
	}
	return r.cfgErr
}

type pluginA struct{ recorder }
type pluginB struct{ recorder }
type pluginC struct{ recorder }

type fixture struct {
	services *container.Collection
	reg      *registry.Registry
	journal  []string
	a        *pluginA
	b        *pluginB
	c        *pluginC
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog := module.NewCatalog()
	require.NoError(t, catalog.Add(&module.Module{
		Name: "lifecycle-tests",
		Types: []*module.TypeDescriptor{
			module.Describe(idA, func() *pluginA { return &pluginA{} }),
			module.Describe(idB, func() *pluginB { return &pluginB{} }),
			module.Describe(idC, func() *pluginC { return &pluginC{} }),
		},
	}))

	f := &fixture{services: container.New()}
	reg, err := registry.New(f.services, catalog)
	require.NoError(t, err)
	f.reg = reg

	f.a = &pluginA{recorder{tag: "a", journal: &f.journal}}
	f.b = &pluginB{recorder{tag: "b", journal: &f.journal}}
	f.c = &pluginC{recorder{tag: "c", journal: &f.journal}}
	return f
}

// install adds the fixture plugins in a, b, c order.
func (f *fixture) install(t *testing.T) {
	t.Helper()
	for _, p := range []plugin.Plugin{f.a, f.b, f.c} {
		require.NoError(t, f.reg.Add(p))
	}
	f.journal = nil
}

type greeting string

func TestActivate_RunsPhasesInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	f.a.onContext = func(_ context.Context, services container.Registrar) error {
		return container.AddSingleton(services, greeting("hello"))
	}
	var resolved greeting
	f.c.onConfig = func(_ context.Context, r container.Resolver, _ any) error {
		var err error
		resolved, err = container.Resolve[greeting](r)
		return err
	}
	f.install(t)

	host := struct{ Name string }{"test-host"}
	resolver, results, err := New(f.reg).Activate(context.Background(), f.services, host)
	require.NoError(t, err)
	require.NotNil(t, resolver)

	assert.Equal(t, []string{
		"context:a", "context:b", "context:c",
		"configure:a", "configure:b", "configure:c",
	}, f.journal)
	assert.Equal(t, greeting("hello"), resolved, "context registrations are visible to Configure")
	assert.Equal(t, host, f.b.hostSeen)

	require.Len(t, results, 6)
	for i, r := range results {
		assert.True(t, r.Succeeded, i)
		assert.NoError(t, r.Err)
	}
	assert.Equal(t, PhaseConfigureContext, results[0].Phase)
	assert.Equal(t, idA, results[0].Identity)
	assert.Equal(t, PhaseConfigure, results[5].Phase)
	assert.Same(t, f.c, results[5].Plugin)

	for _, id := range []string{idA, idB, idC} {
		assert.Equal(t, plugin.Configured, New(f.reg).State(id))
	}
}

func TestActivate_ContinueOnContextFailure(t *testing.T) {
	f := newFixture(t)
	errB := errors.New("b cannot prepare")
	f.b.ctxErr = errB
	f.install(t)

	d := New(f.reg)
	resolver, results, err := d.Activate(context.Background(), f.services, nil)
	require.ErrorIs(t, err, errB)
	require.NotNil(t, resolver)

	assert.Equal(t, []string{
		"context:a", "context:b", "context:c",
		"configure:a", "configure:c",
	}, f.journal, "a plugin that failed its context phase is never configured")
	assert.Len(t, results, 5)
	assert.Equal(t, plugin.Failed, d.State(idB))
	assert.Equal(t, plugin.Configured, d.State(idA))
	assert.Equal(t, plugin.Configured, d.State(idC))
	assert.Zero(t, f.b.configured)
}

func TestActivate_StopOnContextFailure(t *testing.T) {
	f := newFixture(t)
	errB := errors.New("b cannot prepare")
	f.b.ctxErr = errB
	f.install(t)

	d := New(f.reg, WithPolicy(StopOnError))
	resolver, results, err := d.Activate(context.Background(), f.services, nil)
	assert.Same(t, errB, err, "first error returned unwrapped")
	assert.Nil(t, resolver)
	assert.Len(t, results, 2)

	assert.Equal(t, []string{"context:a", "context:b"}, f.journal)
	assert.Equal(t, plugin.ContextConfigured, d.State(idA))
	assert.Equal(t, plugin.Failed, d.State(idB))
	assert.Equal(t, plugin.Installed, d.State(idC), "plugins after the failure are untouched")
}

func TestActivate_PanicsAreIsolated(t *testing.T) {
	t.Run("ConfigureContext", func(t *testing.T) {
		f := newFixture(t)
		f.b.onContext = func(context.Context, container.Registrar) error {
			panic("context blew up")
		}
		f.install(t)

		d := New(f.reg)
		var (
			results []PhaseResult
			err     error
		)
		require.NotPanics(t, func() {
			_, results, err = d.Activate(context.Background(), f.services, nil)
		})
		require.ErrorIs(t, err, ErrPanicked)
		assert.ErrorContains(t, err, "context blew up")

		assert.Equal(t, []string{
			"context:a", "context:b", "context:c",
			"configure:a", "configure:c",
		}, f.journal)
		require.Len(t, results, 5)
		assert.False(t, results[1].Succeeded)
		assert.ErrorIs(t, results[1].Err, ErrPanicked)
		assert.Equal(t, plugin.Failed, d.State(idB))
		assert.Equal(t, plugin.Configured, d.State(idA))
		assert.Equal(t, plugin.Configured, d.State(idC))
	})

	t.Run("Configure", func(t *testing.T) {
		f := newFixture(t)
		f.a.onConfig = func(context.Context, container.Resolver, any) error {
			panic("configure blew up")
		}
		f.install(t)

		d := New(f.reg)
		var err error
		require.NotPanics(t, func() {
			_, _, err = d.Activate(context.Background(), f.services, nil)
		})
		require.ErrorIs(t, err, ErrPanicked)
		assert.Equal(t, plugin.Failed, d.State(idA))
		assert.Equal(t, plugin.Configured, d.State(idB))
		assert.Equal(t, plugin.Configured, d.State(idC))
		assert.Equal(t, 1, f.c.configured)
	})

	t.Run("StopOnError", func(t *testing.T) {
		f := newFixture(t)
		f.a.onContext = func(context.Context, container.Registrar) error {
			panic("stop here")
		}
		f.install(t)

		d := New(f.reg, WithPolicy(StopOnError))
		resolver, results, err := d.Activate(context.Background(), f.services, nil)
		require.ErrorIs(t, err, ErrPanicked)
		assert.Nil(t, resolver)
		assert.Len(t, results, 1)
		assert.Equal(t, plugin.Installed, d.State(idB))
	})
}

func TestConfigure_Policies(t *testing.T) {
	errB := errors.New("b cannot start")

	t.Run("Continue", func(t *testing.T) {
		f := newFixture(t)
		f.b.cfgErr = errB
		f.install(t)

		d := New(f.reg)
		_, results, err := d.Activate(context.Background(), f.services, nil)
		require.ErrorIs(t, err, errB)

		assert.Equal(t, 1, f.c.configured, "later plugins still configure")
		assert.Equal(t, plugin.Failed, d.State(idB))
		assert.Equal(t, plugin.Configured, d.State(idC))

		var failed []string
		for _, r := range results {
			if !r.Succeeded {
				failed = append(failed, r.Identity)
			}
		}
		assert.Equal(t, []string{idB}, failed)
	})

	t.Run("Stop", func(t *testing.T) {
		f := newFixture(t)
		f.b.cfgErr = errB
		f.install(t)

		d := New(f.reg, WithPolicy(StopOnError))
		_, _, err := d.Activate(context.Background(), f.services, nil)
		assert.Same(t, errB, err)

		assert.Zero(t, f.c.configured)
		assert.Equal(t, plugin.ContextConfigured, d.State(idC))
	})
}

func TestContinue_AggregatesAllFailures(t *testing.T) {
	f := newFixture(t)
	errA := errors.New("a failed")
	errC := errors.New("c failed")
	f.a.cfgErr = errA
	f.c.cfgErr = errC
	f.install(t)

	_, _, err := New(f.reg).Activate(context.Background(), f.services, nil)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errC)
}

func TestSweep_Cancellation(t *testing.T) {
	t.Run("BeforeStart", func(t *testing.T) {
		f := newFixture(t)
		f.install(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, results, err := New(f.reg).Activate(ctx, f.services, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, results)
		assert.Empty(t, f.journal)
	})

	t.Run("MidSweep", func(t *testing.T) {
		f := newFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		f.a.onContext = func(context.Context, container.Registrar) error {
			cancel()
			return nil
		}
		f.install(t)

		_, results, err := New(f.reg).Activate(ctx, f.services, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, results, 1)
		assert.Equal(t, []string{"context:a"}, f.journal)
		assert.Equal(t, plugin.Installed, f.reg.State(idB))
	})
}

func TestConfigure_WithoutContextPhase(t *testing.T) {
	f := newFixture(t)
	f.install(t)
	provider, err := f.services.Build()
	require.NoError(t, err)

	d := New(f.reg)
	results, err := d.Configure(context.Background(), provider, nil)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, []string{"configure:a", "configure:b", "configure:c"}, f.journal)
	assert.Nil(t, f.a.hostSeen, "nil host is passed through")

	// Configured plugins are not configured again
	results, err = d.Configure(context.Background(), provider, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1, f.a.configured)
}

func TestConfigureContext_OnlyInstalledPlugins(t *testing.T) {
	f := newFixture(t)
	f.install(t)

	d := New(f.reg)
	_, err := d.ConfigureContext(context.Background(), f.services)
	require.NoError(t, err)

	results, err := d.ConfigureContext(context.Background(), f.services)
	require.NoError(t, err)
	assert.Empty(t, results, "second sweep has nothing to do")
	assert.Equal(t, []string{"context:a", "context:b", "context:c"}, f.journal)
}

func TestActivate_BuildFailure(t *testing.T) {
	f := newFixture(t)
	f.install(t)
	_, err := f.services.Build()
	require.NoError(t, err)

	_, _, err = New(f.reg).Activate(context.Background(), f.services, nil)
	assert.ErrorIs(t, err, container.ErrFrozen)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", ContinueOnError, false},
		{"continue", ContinueOnError, false},
		{" STOP ", StopOnError, false},
		{"retry", ContinueOnError, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "stop", StopOnError.String())
	assert.Equal(t, "policy(7)", Policy(7).String())
}
