// Package module holds the static catalog of plugin modules and the types
// they export.
//
// Built-in modules register themselves from init():
//
//	func init() {
//	    module.Register(&module.Module{
//	        Name: "weather",
//	        Types: []*module.TypeDescriptor{
//	            module.Describe("3f1d2b9e-6c3a-4f7e-9a51-2f8f0f1c7d42", New),
//	        },
//	    })
//	}
//
// Modules loaded from disk export a package-level Module symbol and are
// added to the catalog by the discovery loader. The catalog is the only place
// a plugin type's identity is recorded.
package module

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"

	"github.com/marmos91/plughost/pkg/plugin"
)

var (
	// ErrDuplicateModule is returned when a module name is registered twice.
	ErrDuplicateModule = errors.New("module already registered")

	// ErrIdentityConflict is returned when one type is described with two identities.
	ErrIdentityConflict = errors.New("plugin type has conflicting identities")

	// ErrNotConstructible is returned when a descriptor has no constructor
	// or the constructor returns nil.
	ErrNotConstructible = errors.New("plugin type is not constructible")
)

// Module is a named unit of plugin types.
type Module struct {
	// Name is the module name used by the name-based resolution tiers.
	Name string

	// Path is the file the module was loaded from; empty for built-ins.
	Path string

	// Types lists the plugin types the module exports, in declaration order.
	Types []*TypeDescriptor
}

// TypeDescriptor describes one plugin type.
type TypeDescriptor struct {
	// Name is the type's simple name, e.g. "BackendPlugin".
	Name string

	// Package is the type's import path.
	Package string

	// Identity is the type's identity token, empty when the type declares none.
	Identity string

	// Type is the dynamic type of instances returned by New.
	Type reflect.Type

	// New creates an instance. A nil New marks the type as non-instantiable.
	New func() plugin.Plugin
}

// FullName returns "<package>.<name>".
func (d *TypeDescriptor) FullName() string {
	if d.Package == "" {
		return d.Name
	}
	return d.Package + "." + d.Name
}

// Concrete reports whether the type can be instantiated.
func (d *TypeDescriptor) Concrete() bool {
	return d != nil && d.New != nil
}

// Instantiate calls New, converting a nil constructor, a nil result or a
// panicking constructor into ErrNotConstructible.
func (d *TypeDescriptor) Instantiate() (p plugin.Plugin, err error) {
	if !d.Concrete() {
		return nil, fmt.Errorf("%s: %w", d.FullName(), ErrNotConstructible)
	}
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = fmt.Errorf("%s: constructor panicked: %v: %w", d.FullName(), r, ErrNotConstructible)
		}
	}()

	p = d.New()
	if p == nil || reflect.ValueOf(p).Kind() == reflect.Pointer && reflect.ValueOf(p).IsNil() {
		return nil, fmt.Errorf("%s: constructor returned nil: %w", d.FullName(), ErrNotConstructible)
	}
	return p, nil
}

// Describe builds the descriptor of T with the given identity.
// T must be a concrete (non-interface) type. identity may be any non-blank
// string; a blank one marks a type without identity, which the plugin
// registry later rejects.
func Describe[T plugin.Plugin](identity string, ctor func() T) *TypeDescriptor {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Interface {
		panic(fmt.Sprintf("module: Describe requires a concrete plugin type, got interface %s", t))
	}

	named := t
	if named.Kind() == reflect.Pointer {
		named = named.Elem()
	}

	d := &TypeDescriptor{
		Name:     named.Name(),
		Package:  named.PkgPath(),
		Identity: NormalizeIdentity(identity),
		Type:     t,
	}
	if ctor != nil {
		d.New = func() plugin.Plugin { return ctor() }
	}
	return d
}

// TypeName returns the simple name of v's dynamic type, dereferencing pointers.
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// NormalizeIdentity trims identity and rewrites UUID-shaped values in their
// canonical lowercase form. Other non-blank strings are valid identities and
// compare exactly.
func NormalizeIdentity(identity string) string {
	identity = strings.TrimSpace(identity)
	if id, err := uuid.Parse(identity); err == nil {
		return id.String()
	}
	return identity
}
