package module

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Catalog is a thread-safe table of modules and the identities of the plugin
// types they export.
type Catalog struct {
	mu         sync.RWMutex
	modules    []*Module
	byName     map[string]*Module
	byPath     map[string]*Module
	types      map[reflect.Type]*TypeDescriptor
	owners     map[reflect.Type]*Module
	identities map[reflect.Type]string
}

// Default is the process-wide catalog used by Register.
var Default = NewCatalog()

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byName:     make(map[string]*Module),
		byPath:     make(map[string]*Module),
		types:      make(map[reflect.Type]*TypeDescriptor),
		owners:     make(map[reflect.Type]*Module),
		identities: make(map[reflect.Type]string),
	}
}

// Register adds m to the Default catalog and panics on error.
// Intended for init() functions of built-in modules.
func Register(m *Module) {
	if err := Default.Add(m); err != nil {
		panic(err)
	}
}

// Add registers a module. Module names are unique case-insensitively.
func (c *Catalog) Add(m *Module) error {
	if m == nil {
		return fmt.Errorf("cannot register nil module")
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("cannot register module with empty name")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToLower(m.Name)
	if _, exists := c.byName[key]; exists {
		return fmt.Errorf("module %q: %w", m.Name, ErrDuplicateModule)
	}

	for _, d := range m.Types {
		if d == nil || d.Type == nil {
			continue
		}
		if existing, ok := c.identities[d.Type]; ok && existing != d.Identity {
			return fmt.Errorf("type %s in module %q: %w (%q vs %q)",
				d.FullName(), m.Name, ErrIdentityConflict, existing, d.Identity)
		}
	}

	for _, d := range m.Types {
		if d == nil || d.Type == nil {
			continue
		}
		if _, ok := c.types[d.Type]; !ok {
			c.types[d.Type] = d
			c.owners[d.Type] = m
		}
		if d.Identity != "" {
			c.identities[d.Type] = d.Identity
		}
	}

	c.modules = append(c.modules, m)
	c.byName[key] = m
	if m.Path != "" {
		c.byPath[m.Path] = m
	}
	return nil
}

// Modules returns all modules in registration order.
func (c *Catalog) Modules() []*Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Module, len(c.modules))
	copy(out, c.modules)
	return out
}

// Lookup finds a module by name, case-insensitively.
func (c *Catalog) Lookup(name string) (*Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byName[strings.ToLower(name)]
	return m, ok
}

// ByPath finds a module previously loaded from path.
func (c *Catalog) ByPath(path string) (*Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byPath[path]
	return m, ok
}

// IdentityOf returns the identity recorded for the dynamic type of p.
func (c *Catalog) IdentityOf(p any) (string, bool) {
	t := reflect.TypeOf(p)
	if t == nil {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.identities[t]
	return id, ok && id != ""
}

// DescriptorOf returns the descriptor for the dynamic type of p.
func (c *Catalog) DescriptorOf(p any) (*TypeDescriptor, bool) {
	t := reflect.TypeOf(p)
	if t == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.types[t]
	return d, ok
}

// ModuleOf returns the module that first described the dynamic type of p.
func (c *Catalog) ModuleOf(p any) (*Module, bool) {
	t := reflect.TypeOf(p)
	if t == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.owners[t]
	return m, ok
}

// Len returns the number of registered modules.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.modules)
}
