// Package container implements the collaborator registry that plugins
// register capabilities into during Install and resolve from during Configure.
//
// The registry has two halves. A Collection accepts registrations and is
// mutable until Build is called. The Provider returned by Build is read-only
// and resolves registrations according to their Lifetime.
//
// Example usage:
//
//	services := container.New()
//	_ = container.AddSingleton[Clock](services, systemClock{})
//	_ = container.AddTransient(services, func(r container.Resolver) (*Handler, error) {
//	    clock, err := container.Resolve[Clock](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewHandler(clock), nil
//	})
//
//	provider, _ := services.Build()
//	handler, _ := container.Resolve[*Handler](provider)
package container

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrNotRegistered is returned when no registration exists for a key.
	ErrNotRegistered = errors.New("container: capability not registered")

	// ErrFrozen is returned when registering into an already built collection.
	ErrFrozen = errors.New("container: collection already built")

	// ErrInvalidProvider is returned for nil providers or instance providers
	// registered with a non-singleton lifetime.
	ErrInvalidProvider = errors.New("container: invalid provider")
)

// Lifetime controls how often a registration's factory is invoked.
type Lifetime int

const (
	// Singleton registrations are created once per Provider tree.
	Singleton Lifetime = iota

	// Scoped registrations are created once per Scope.
	Scoped

	// Transient registrations are created on every Resolve.
	Transient
)

// String returns the lifetime name.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	case Transient:
		return "transient"
	default:
		return fmt.Sprintf("lifetime(%d)", int(l))
	}
}

// Key identifies a capability by its Go type and an optional name.
type Key struct {
	Type reflect.Type
	Name string
}

// KeyOf returns the unnamed key for T.
func KeyOf[T any]() Key {
	return Key{Type: reflect.TypeFor[T]()}
}

// Named returns a named key for T.
func Named[T any](name string) Key {
	return Key{Type: reflect.TypeFor[T](), Name: name}
}

// String returns a human readable form of the key.
func (k Key) String() string {
	if k.Type == nil {
		return "<nil>"
	}
	if k.Name == "" {
		return k.Type.String()
	}
	return k.Type.String() + "#" + k.Name
}

// Factory builds a capability from a Resolver.
type Factory func(r Resolver) (any, error)

// Registrar is the pre-build half of the collaborator registry.
type Registrar interface {
	// Register adds a provider for key. The provider is either a Factory
	// (any lifetime) or a ready instance (Singleton only). Multiple
	// registrations for the same key are kept in order; Resolve returns the
	// last one and ResolveAll returns all of them.
	Register(key Key, provider any, lifetime Lifetime) error
}

// Resolver is the post-build, read-only half of the collaborator registry.
type Resolver interface {
	Resolve(key Key) (any, error)
	ResolveAll(key Key) ([]any, error)
}

// Builder is a Registrar that can be frozen into a Resolver.
type Builder interface {
	Registrar
	Build() (Resolver, error)
}

type registration struct {
	key      Key
	lifetime Lifetime
	factory  Factory

	once  sync.Once
	value any
	err   error
}

// Collection is the in-process collaborator registry.
type Collection struct {
	mu      sync.RWMutex
	entries map[Key][]*registration
	count   int
	built   bool
}

// New creates an empty collection.
func New() *Collection {
	return &Collection{
		entries: make(map[Key][]*registration),
	}
}

// Register implements Registrar.
func (c *Collection) Register(key Key, provider any, lifetime Lifetime) error {
	if key.Type == nil {
		return fmt.Errorf("%w: key has no type", ErrInvalidProvider)
	}

	reg := &registration{key: key, lifetime: lifetime}
	switch p := provider.(type) {
	case nil:
		return fmt.Errorf("%w: nil provider for %s", ErrInvalidProvider, key)
	case Factory:
		reg.factory = p
	case func(Resolver) (any, error):
		reg.factory = p
	default:
		if lifetime != Singleton {
			return fmt.Errorf("%w: instance for %s must be a singleton, got %s", ErrInvalidProvider, key, lifetime)
		}
		instance := p
		reg.factory = func(Resolver) (any, error) { return instance, nil }
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built {
		return ErrFrozen
	}

	c.entries[key] = append(c.entries[key], reg)
	c.count++
	return nil
}

// Contains reports whether at least one registration exists for key.
func (c *Collection) Contains(key Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries[key]) > 0
}

// Len returns the total number of registrations.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

// Build freezes the collection and returns its root Provider.
// Calling Build more than once returns ErrFrozen.
func (c *Collection) Build() (Resolver, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built {
		return nil, ErrFrozen
	}
	c.built = true

	entries := make(map[Key][]*registration, len(c.entries))
	for k, regs := range c.entries {
		entries[k] = append([]*registration(nil), regs...)
	}

	return &Provider{
		entries: entries,
		scoped:  make(map[*registration]any),
	}, nil
}
