package lifecycle

import (
	"fmt"
	"strings"
)

// Policy decides what a sweep does after a plugin fails.
type Policy int

const (
	// ContinueOnError runs every remaining plugin and returns the failures
	// joined with errors.Join.
	ContinueOnError Policy = iota

	// StopOnError returns the first failure as is. Plugins after it are
	// left untouched.
	StopOnError
)

func (p Policy) String() string {
	switch p {
	case ContinueOnError:
		return "continue"
	case StopOnError:
		return "stop"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses "continue" or "stop", ignoring case. An empty string
// selects ContinueOnError.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continue":
		return ContinueOnError, nil
	case "stop":
		return StopOnError, nil
	default:
		return ContinueOnError, fmt.Errorf("unknown failure policy %q (expected continue or stop)", s)
	}
}
