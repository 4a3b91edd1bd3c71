package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNilPlugin is wrapped by the ValidationError returned for a nil plugin.
	ErrNilPlugin = errors.New("plugin is nil")

	// ErrNilServices is wrapped by the ValidationError returned by New for a
	// nil collaborator registry.
	ErrNilServices = errors.New("collaborator registry is nil")

	// ErrMissingIdentity is wrapped by the ValidationError returned when a
	// plugin type carries no identity.
	ErrMissingIdentity = errors.New("plugin does not provide a plugin id")

	// ErrDuplicateIdentity matches every DuplicateIdentityError.
	ErrDuplicateIdentity = errors.New("plugin identity already registered")

	ErrNotInstalled      = errors.New("plugin not installed")
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// ValidationError reports an invalid argument. Type is the plugin type name
// when one is known; Param names the offending parameter.
type ValidationError struct {
	Type  string
	Param string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("invalid %s: %v", e.Param, e.Err)
	}
	return fmt.Sprintf("invalid %s: plugin %q: %v", e.Param, e.Type, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DuplicateIdentityError is returned when a plugin's identity is already used
// by a plugin of another type.
type DuplicateIdentityError struct {
	Identity string
	Type     string
	Existing string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("plugin %q: identity %s already registered by %q", e.Type, e.Identity, e.Existing)
}

// Is reports whether target is ErrDuplicateIdentity.
func (e *DuplicateIdentityError) Is(target error) bool {
	return target == ErrDuplicateIdentity
}
