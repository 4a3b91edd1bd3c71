package container

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface {
	Greet() string
}

type english struct{ n int }

func (e *english) Greet() string { return "hello" }

func TestCollection_SingletonInstance(t *testing.T) {
	c := New()
	g := &english{}
	require.NoError(t, AddSingleton[greeter](c, g))

	p, err := c.Build()
	require.NoError(t, err)

	got, err := Resolve[greeter](p)
	require.NoError(t, err)
	assert.Same(t, g, got)
}

func TestCollection_Lifetimes(t *testing.T) {
	c := New()
	calls := map[string]int{}

	require.NoError(t, AddSingletonFunc(c, func(Resolver) (*english, error) {
		calls["singleton"]++
		return &english{n: calls["singleton"]}, nil
	}))
	require.NoError(t, AddScoped(c, func(Resolver) (string, error) {
		calls["scoped"]++
		return "scoped", nil
	}))
	require.NoError(t, AddTransient(c, func(Resolver) (int, error) {
		calls["transient"]++
		return calls["transient"], nil
	}))

	r, err := c.Build()
	require.NoError(t, err)
	root := r.(*Provider)

	for i := 0; i < 3; i++ {
		_, err := Resolve[*english](root)
		require.NoError(t, err)
		_, err = Resolve[string](root)
		require.NoError(t, err)
		_, err = Resolve[int](root)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, calls["singleton"])
	assert.Equal(t, 1, calls["scoped"])
	assert.Equal(t, 3, calls["transient"])

	scope := root.Scope()
	_, err = Resolve[string](scope)
	require.NoError(t, err)
	_, err = Resolve[*english](scope)
	require.NoError(t, err)

	assert.Equal(t, 2, calls["scoped"], "a new scope creates its own scoped value")
	assert.Equal(t, 1, calls["singleton"], "singletons are shared with child scopes")
}

func TestCollection_ResolveMissing(t *testing.T) {
	p, err := New().Build()
	require.NoError(t, err)

	_, err = Resolve[greeter](p)
	assert.ErrorIs(t, err, ErrNotRegistered)

	_, ok := TryResolve[greeter](p)
	assert.False(t, ok)

	all, err := ResolveAll[greeter](p)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCollection_LastRegistrationWins(t *testing.T) {
	c := New()
	first, second := &english{n: 1}, &english{n: 2}
	require.NoError(t, AddSingleton[greeter](c, first))
	require.NoError(t, AddSingleton[greeter](c, second))
	assert.Equal(t, 2, c.Len())

	p, err := c.Build()
	require.NoError(t, err)

	got, err := Resolve[greeter](p)
	require.NoError(t, err)
	assert.Same(t, second, got)

	all, err := ResolveAll[greeter](p)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Same(t, first, all[0])
	assert.Same(t, second, all[1])
}

func TestCollection_NamedRegistrations(t *testing.T) {
	c := New()
	require.NoError(t, AddNamedSingleton(c, "a", "alpha"))
	require.NoError(t, AddNamedSingleton(c, "b", "beta"))

	assert.True(t, c.Contains(Named[string]("a")))
	assert.False(t, c.Contains(KeyOf[string]()))

	p, err := c.Build()
	require.NoError(t, err)

	got, err := ResolveNamed[string](p, "b")
	require.NoError(t, err)
	assert.Equal(t, "beta", got)
}

func TestCollection_FrozenAfterBuild(t *testing.T) {
	c := New()
	_, err := c.Build()
	require.NoError(t, err)

	err = AddSingleton(c, 1)
	assert.ErrorIs(t, err, ErrFrozen)

	_, err = c.Build()
	assert.ErrorIs(t, err, ErrFrozen)
}

func TestCollection_InvalidProviders(t *testing.T) {
	c := New()

	err := c.Register(KeyOf[greeter](), nil, Singleton)
	assert.ErrorIs(t, err, ErrInvalidProvider)

	err = c.Register(KeyOf[int](), 42, Transient)
	assert.ErrorIs(t, err, ErrInvalidProvider)

	err = c.Register(Key{}, 42, Singleton)
	assert.ErrorIs(t, err, ErrInvalidProvider)
}

func TestCollection_FactoryErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	c := New()
	require.NoError(t, AddTransient(c, func(Resolver) (int, error) { return 0, boom }))

	p, err := c.Build()
	require.NoError(t, err)

	_, err = Resolve[int](p)
	assert.ErrorIs(t, err, boom)
}

func TestCollection_FactoryResolvesDependencies(t *testing.T) {
	c := New()
	require.NoError(t, AddSingleton[greeter](c, &english{}))
	require.NoError(t, AddTransient(c, func(r Resolver) (string, error) {
		g, err := Resolve[greeter](r)
		if err != nil {
			return "", err
		}
		return g.Greet() + " world", nil
	}))

	p, err := c.Build()
	require.NoError(t, err)

	got, err := Resolve[string](p)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "int", KeyOf[int]().String())
	assert.Equal(t, "string#x", Named[string]("x").String())
	assert.Equal(t, "<nil>", Key{}.String())
	assert.Equal(t, "scoped", Scoped.String())
}
