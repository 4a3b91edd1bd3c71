package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/marmos91/plughost/pkg/container"
	"github.com/marmos91/plughost/pkg/module"
	"github.com/marmos91/plughost/pkg/plugin"
)

const (
	alphaID = "a1b2c3d4-0000-4000-8000-000000000001"
	betaID  = "a1b2c3d4-0000-4000-8000-000000000002"
)

type alphaService struct{}

type alphaPlugin struct {
	plugin.Base
	installs int
}

func (p *alphaPlugin) Install(services container.Registrar) error {
	p.installs++
	return container.AddSingleton(services, &alphaService{})
}

func (*alphaPlugin) Configure(context.Context, container.Resolver, any) error { return nil }

// betaPlugin shares alphaPlugin's identity in the duplicate catalog.
type betaPlugin struct {
	plugin.Base
	installs int
}

func (p *betaPlugin) Install(container.Registrar) error {
	p.installs++
	return nil
}

func (*betaPlugin) Configure(context.Context, container.Resolver, any) error { return nil }

// anonymousPlugin is never given an identity.
type anonymousPlugin struct {
	plugin.Base
	installs int
}

func (p *anonymousPlugin) Install(container.Registrar) error {
	p.installs++
	return nil
}

func (*anonymousPlugin) Configure(context.Context, container.Resolver, any) error { return nil }

var errInstall = errors.New("install exploded")

type failingPlugin struct{ plugin.Base }

func (*failingPlugin) Install(services container.Registrar) error {
	_ = container.AddSingleton(services, "partial")
	return errInstall
}

func (*failingPlugin) Configure(context.Context, container.Resolver, any) error { return nil }

const failingID = "a1b2c3d4-0000-4000-8000-000000000003"

// Helper to create a catalog describing the test plugin types
func testCatalog(t *testing.T, betaIdentity string) *module.Catalog {
	t.Helper()
	c := module.NewCatalog()
	err := c.Add(&module.Module{
		Name: "registry-tests",
		Types: []*module.TypeDescriptor{
			module.Describe(alphaID, func() *alphaPlugin { return &alphaPlugin{} }),
			module.Describe(betaIdentity, func() *betaPlugin { return &betaPlugin{} }),
			module.Describe("", func() *anonymousPlugin { return &anonymousPlugin{} }),
			module.Describe(failingID, func() *failingPlugin { return &failingPlugin{} }),
		},
	})
	if err != nil {
		t.Fatalf("Failed to build catalog: %v", err)
	}
	return c
}

func newTestRegistry(t *testing.T, betaIdentity string) (*Registry, *container.Collection) {
	t.Helper()
	services := container.New()
	reg, err := New(services, testCatalog(t, betaIdentity))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return reg, services
}

func TestNew_NilServices(t *testing.T) {
	_, err := New(nil, nil)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if verr.Param != "services" {
		t.Errorf("Expected param 'services', got %q", verr.Param)
	}
	if !errors.Is(err, ErrNilServices) {
		t.Errorf("Expected ErrNilServices, got %v", err)
	}
}

func TestNew_DefaultCatalog(t *testing.T) {
	reg, err := New(container.New(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if reg.Catalog() != module.Default {
		t.Error("Expected module.Default when no catalog is given")
	}
}

func TestAdd_Installs(t *testing.T) {
	reg, services := newTestRegistry(t, betaID)
	p := &alphaPlugin{}

	if err := reg.Add(p); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if p.installs != 1 {
		t.Errorf("Expected 1 install, got %d", p.installs)
	}
	if p.Name() != "alphaPlugin" {
		t.Errorf("Expected blank name to default to type name, got %q", p.Name())
	}
	if got := p.SourceModules(); len(got) != 1 || got[0] != "registry-tests" {
		t.Errorf("Expected source module 'registry-tests', got %v", got)
	}
	if reg.Count() != 1 {
		t.Errorf("Expected 1 plugin, got %d", reg.Count())
	}
	if state := reg.State(alphaID); state != plugin.Installed {
		t.Errorf("Expected state installed, got %s", state)
	}

	got, ok := reg.Get(strings.ToUpper(alphaID))
	if !ok || got != p {
		t.Error("Expected Get to find the plugin by identity, ignoring case")
	}
	if id, ok := reg.Identity(p); !ok || id != alphaID {
		t.Errorf("Expected identity %s, got %q", alphaID, id)
	}

	// The plugin and its capabilities are resolvable after Build
	provider, err := services.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := container.Resolve[*alphaService](provider); err != nil {
		t.Errorf("Expected installed capability, got %v", err)
	}
	all, err := container.ResolveAll[plugin.Plugin](provider)
	if err != nil || len(all) != 1 || all[0] != p {
		t.Errorf("Expected plugin under Instances, got %v (%v)", all, err)
	}
	if byType, err := container.Resolve[*alphaPlugin](provider); err != nil || byType != p {
		t.Errorf("Expected plugin under its concrete type, got %v (%v)", byType, err)
	}
	if named, err := container.ResolveNamed[plugin.Plugin](provider, alphaID); err != nil || named != p {
		t.Errorf("Expected plugin under its identity, got %v (%v)", named, err)
	}
}

func TestAdd_KeepsExplicitName(t *testing.T) {
	reg, _ := newTestRegistry(t, betaID)
	p := &alphaPlugin{}
	p.SetName("weather")

	if err := reg.Add(p); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if p.Name() != "weather" {
		t.Errorf("Expected name 'weather', got %q", p.Name())
	}
}

func TestAdd_NilPlugin(t *testing.T) {
	reg, _ := newTestRegistry(t, betaID)

	var typedNil *alphaPlugin
	for _, p := range []plugin.Plugin{nil, typedNil} {
		err := reg.Add(p)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Expected ValidationError, got %v", err)
		}
		if verr.Param != "plugin" {
			t.Errorf("Expected param 'plugin', got %q", verr.Param)
		}
		if !errors.Is(err, ErrNilPlugin) {
			t.Errorf("Expected ErrNilPlugin, got %v", err)
		}
	}
	if reg.Count() != 0 {
		t.Errorf("Expected no plugins, got %d", reg.Count())
	}
}

func TestAdd_MissingIdentity(t *testing.T) {
	tests := []struct {
		name     string
		catalogs func(t *testing.T) *module.Catalog
	}{
		{"NotInCatalog", func(t *testing.T) *module.Catalog { return module.NewCatalog() }},
		{"BlankIdentity", func(t *testing.T) *module.Catalog { return testCatalog(t, betaID) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := New(container.New(), tt.catalogs(t))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			p := &anonymousPlugin{}

			err = reg.Add(p)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Type != "anonymousPlugin" || verr.Param != "plugin" {
				t.Errorf("Expected type/param anonymousPlugin/plugin, got %q/%q", verr.Type, verr.Param)
			}
			if !errors.Is(err, ErrMissingIdentity) {
				t.Errorf("Expected ErrMissingIdentity, got %v", err)
			}
			if !strings.Contains(err.Error(), "anonymousPlugin") {
				t.Errorf("Expected message to name the type, got %q", err.Error())
			}
			if p.installs != 0 {
				t.Error("Install must not run for a plugin without identity")
			}
		})
	}
}

func TestAdd_NonUUIDIdentity(t *testing.T) {
	reg, _ := newTestRegistry(t, "X")
	p := &betaPlugin{}

	if err := reg.Add(p); err != nil {
		t.Fatalf("Expected a non-UUID identity to be accepted, got %v", err)
	}
	if p.installs != 1 {
		t.Errorf("Expected Install to run once, got %d", p.installs)
	}
	if got, ok := reg.Get("X"); !ok || got != p {
		t.Errorf("Expected Get(\"X\") to return the plugin, got %v, %v", got, ok)
	}
	if got, ok := reg.Get(" X "); !ok || got != p {
		t.Error("Expected lookups to ignore surrounding whitespace")
	}
	if _, ok := reg.Get("x"); ok {
		t.Error("Expected non-UUID identities to compare exactly")
	}
	if id, _ := reg.Identity(p); id != "X" {
		t.Errorf("Expected identity X, got %q", id)
	}
}

func TestAdd_DuplicateNonUUIDIdentity(t *testing.T) {
	c := module.NewCatalog()
	err := c.Add(&module.Module{
		Name: "shared-identity",
		Types: []*module.TypeDescriptor{
			module.Describe("X", func() *alphaPlugin { return &alphaPlugin{} }),
			module.Describe("X", func() *betaPlugin { return &betaPlugin{} }),
		},
	})
	if err != nil {
		t.Fatalf("Failed to build catalog: %v", err)
	}
	reg, err := New(container.New(), c)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := reg.Add(&alphaPlugin{}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	beta := &betaPlugin{}
	err = reg.Add(beta)

	var dup *DuplicateIdentityError
	if !errors.As(err, &dup) {
		t.Fatalf("Expected DuplicateIdentityError, got %v", err)
	}
	if dup.Identity != "X" {
		t.Errorf("Expected duplicate identity X, got %q", dup.Identity)
	}
	if beta.installs != 0 {
		t.Error("Install must not run for a rejected duplicate")
	}
	if reg.Count() != 1 {
		t.Errorf("Expected 1 installed plugin, got %d", reg.Count())
	}
}

func TestAdd_SameTypeIsNoOp(t *testing.T) {
	reg, services := newTestRegistry(t, betaID)
	first := &alphaPlugin{}
	second := &alphaPlugin{}

	if err := reg.Add(first); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	before := services.Len()

	if err := reg.Add(second); err != nil {
		t.Fatalf("Expected re-adding the same type to succeed, got %v", err)
	}
	if second.installs != 0 {
		t.Error("Install must not run for an already installed type")
	}
	if reg.Count() != 1 {
		t.Errorf("Expected 1 plugin, got %d", reg.Count())
	}
	if services.Len() != before {
		t.Errorf("Expected no new registrations, got %d -> %d", before, services.Len())
	}
}

func TestAdd_DuplicateIdentity(t *testing.T) {
	// betaPlugin is described with alphaPlugin's identity
	reg, _ := newTestRegistry(t, alphaID)
	if err := reg.Add(&alphaPlugin{}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	beta := &betaPlugin{}
	err := reg.Add(beta)

	var dup *DuplicateIdentityError
	if !errors.As(err, &dup) {
		t.Fatalf("Expected DuplicateIdentityError, got %v", err)
	}
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Error("Expected errors.Is ErrDuplicateIdentity")
	}
	if dup.Identity != alphaID || dup.Existing != "alphaPlugin" || dup.Type != "betaPlugin" {
		t.Errorf("Unexpected error fields: %+v", dup)
	}
	if beta.installs != 0 {
		t.Error("Install must not run for a duplicate identity")
	}
	if reg.Count() != 1 {
		t.Errorf("Expected 1 plugin, got %d", reg.Count())
	}
}

func TestAdd_InstallError(t *testing.T) {
	reg, services := newTestRegistry(t, betaID)

	err := reg.Add(&failingPlugin{})
	if err != errInstall {
		t.Fatalf("Expected the install error unwrapped, got %v", err)
	}
	if reg.Count() != 0 {
		t.Errorf("Expected failed plugin not to be registered, got %d", reg.Count())
	}
	if reg.State(failingID) != plugin.Unregistered {
		t.Errorf("Expected unregistered state, got %s", reg.State(failingID))
	}
	// Registrations made before the failure are not rolled back
	if !services.Contains(container.KeyOf[string]()) {
		t.Error("Expected partial registration to remain")
	}
}

func TestAdd_FrozenContainer(t *testing.T) {
	reg, services := newTestRegistry(t, betaID)
	if _, err := services.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	err := reg.Add(&betaPlugin{})
	if !errors.Is(err, container.ErrFrozen) {
		t.Fatalf("Expected ErrFrozen, got %v", err)
	}
	if reg.Count() != 0 {
		t.Errorf("Expected no plugins, got %d", reg.Count())
	}
}

func TestPlugins_Order(t *testing.T) {
	reg, _ := newTestRegistry(t, betaID)
	beta := &betaPlugin{}
	alpha := &alphaPlugin{}

	for _, p := range []plugin.Plugin{beta, alpha} {
		if err := reg.Add(p); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	plugins := reg.Plugins()
	if len(plugins) != 2 || plugins[0] != beta || plugins[1] != alpha {
		t.Errorf("Expected installation order [beta alpha], got %v", plugins)
	}

	states := reg.States()
	if len(states) != 2 || states[alphaID] != plugin.Installed || states[betaID] != plugin.Installed {
		t.Errorf("Unexpected states: %v", states)
	}
}

func TestTransition(t *testing.T) {
	reg, _ := newTestRegistry(t, betaID)
	if err := reg.Add(&alphaPlugin{}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Test valid path
	for _, next := range []plugin.State{plugin.ContextConfigured, plugin.Configured} {
		if err := reg.Transition(alphaID, next); err != nil {
			t.Fatalf("Transition to %s failed: %v", next, err)
		}
	}

	// Test skipping backwards
	if err := reg.Transition(alphaID, plugin.Installed); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}

	// Test unknown identity
	if err := reg.Transition(betaID, plugin.Failed); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("Expected ErrNotInstalled, got %v", err)
	}
}

func TestConcurrentAdd(t *testing.T) {
	reg, _ := newTestRegistry(t, betaID)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- reg.Add(&alphaPlugin{})
		}()
		go func() {
			defer wg.Done()
			errs <- reg.Add(&betaPlugin{})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if reg.Count() != 2 {
		t.Errorf("Expected 2 plugins, got %d", reg.Count())
	}
}
