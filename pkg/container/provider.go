package container

import (
	"fmt"
	"sync"
)

// Provider resolves registrations of a built Collection.
//
// The root Provider returned by Collection.Build acts as its own scope for
// Scoped registrations. Scope creates a child that shares singletons with
// the root but caches scoped values separately.
type Provider struct {
	entries map[Key][]*registration

	mu     sync.Mutex
	scoped map[*registration]any
}

// Resolve returns the last registration for key.
func (p *Provider) Resolve(key Key) (any, error) {
	regs := p.entries[key]
	if len(regs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}
	return p.instantiate(regs[len(regs)-1])
}

// ResolveAll returns every registration for key in registration order.
// An unknown key yields an empty slice.
func (p *Provider) ResolveAll(key Key) ([]any, error) {
	regs := p.entries[key]
	out := make([]any, 0, len(regs))
	for _, reg := range regs {
		v, err := p.instantiate(reg)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Scope returns a child provider with its own scoped cache.
func (p *Provider) Scope() *Provider {
	return &Provider{
		entries: p.entries,
		scoped:  make(map[*registration]any),
	}
}

func (p *Provider) instantiate(reg *registration) (any, error) {
	switch reg.lifetime {
	case Singleton:
		reg.once.Do(func() {
			reg.value, reg.err = reg.factory(p)
		})
		if reg.err != nil {
			return nil, fmt.Errorf("resolve %s: %w", reg.key, reg.err)
		}
		return reg.value, nil

	case Scoped:
		p.mu.Lock()
		if v, ok := p.scoped[reg]; ok {
			p.mu.Unlock()
			return v, nil
		}
		p.mu.Unlock()

		v, err := reg.factory(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", reg.key, err)
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if existing, ok := p.scoped[reg]; ok {
			return existing, nil
		}
		p.scoped[reg] = v
		return v, nil

	default:
		v, err := reg.factory(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", reg.key, err)
		}
		return v, nil
	}
}
