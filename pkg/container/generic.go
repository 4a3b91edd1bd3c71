package container

import "fmt"

// AddSingleton registers a ready instance of T.
func AddSingleton[T any](r Registrar, instance T) error {
	return r.Register(KeyOf[T](), any(instance), Singleton)
}

// AddNamedSingleton registers a ready instance of T under name.
func AddNamedSingleton[T any](r Registrar, name string, instance T) error {
	return r.Register(Named[T](name), any(instance), Singleton)
}

// AddSingletonFunc registers a lazily created singleton of T.
func AddSingletonFunc[T any](r Registrar, fn func(Resolver) (T, error)) error {
	return r.Register(KeyOf[T](), wrap(fn), Singleton)
}

// AddScoped registers a factory for T that runs once per scope.
func AddScoped[T any](r Registrar, fn func(Resolver) (T, error)) error {
	return r.Register(KeyOf[T](), wrap(fn), Scoped)
}

// AddTransient registers a factory for T that runs on every resolve.
func AddTransient[T any](r Registrar, fn func(Resolver) (T, error)) error {
	return r.Register(KeyOf[T](), wrap(fn), Transient)
}

// Resolve returns the registration for T.
func Resolve[T any](r Resolver) (T, error) {
	return ResolveKey[T](r, KeyOf[T]())
}

// ResolveNamed returns the registration for T under name.
func ResolveNamed[T any](r Resolver, name string) (T, error) {
	return ResolveKey[T](r, Named[T](name))
}

// ResolveKey resolves key and asserts the result to T.
func ResolveKey[T any](r Resolver, key Key) (T, error) {
	var zero T
	v, err := r.Resolve(key)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("container: %s resolved to %T", key, v)
	}
	return typed, nil
}

// ResolveAll returns every registration for T in registration order.
func ResolveAll[T any](r Resolver) ([]T, error) {
	key := KeyOf[T]()
	values, err := r.ResolveAll(key)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(values))
	for _, v := range values {
		typed, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("container: %s resolved to %T", key, v)
		}
		out = append(out, typed)
	}
	return out, nil
}

// TryResolve returns the registration for T, or false when absent.
func TryResolve[T any](r Resolver) (T, bool) {
	v, err := Resolve[T](r)
	if err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

func wrap[T any](fn func(Resolver) (T, error)) Factory {
	return func(r Resolver) (any, error) {
		return fn(r)
	}
}
