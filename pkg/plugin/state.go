package plugin

// State is a plugin's position in the lifecycle.
//
//	Unregistered → Installed → ContextConfigured → Configured
//
// Failed is reachable from any transition and is absorbing.
type State int

const (
	Unregistered State = iota
	Installed
	ContextConfigured
	Configured
	Failed
)

var stateNames = [...]string{
	Unregistered:      "unregistered",
	Installed:         "installed",
	ContextConfigured: "context_configured",
	Configured:        "configured",
	Failed:            "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// CanAdvance reports whether a plugin in s may move to next.
func (s State) CanAdvance(next State) bool {
	switch next {
	case Failed:
		return s != Failed
	case Installed:
		return s == Unregistered
	case ContextConfigured:
		return s == Installed
	case Configured:
		return s == ContextConfigured
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
