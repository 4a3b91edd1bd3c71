package logger

import (
	"log/slog"
	"time"
)

// Standard field keys. Use them consistently so logs can be queried by
// plugin, phase or module.
const (
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	KeyPlugin   = "plugin"   // Plugin name
	KeyIdentity = "identity" // Plugin identity
	KeyType     = "type"     // Plugin type full name
	KeyModule   = "module"   // Module name
	KeyPhase    = "phase"    // Lifecycle phase
	KeyState    = "state"    // Lifecycle state
	KeyTier     = "tier"     // Resolution strategy name
	KeyRoot     = "root"     // Candidate root directory
	KeyPath     = "path"     // Module file path
	KeyCount    = "count"    // Generic counter

	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// Plugin returns a slog.Attr for a plugin name.
func Plugin(name string) slog.Attr { return slog.String(KeyPlugin, name) }

// Identity returns a slog.Attr for a plugin identity.
func Identity(id string) slog.Attr { return slog.String(KeyIdentity, id) }

func Type(fullName string) slog.Attr { return slog.String(KeyType, fullName) }
func Module(name string) slog.Attr { return slog.String(KeyModule, name) }
func Phase(phase string) slog.Attr { return slog.String(KeyPhase, phase) }
func State(state string) slog.Attr { return slog.String(KeyState, state) }
func Tier(name string) slog.Attr { return slog.String(KeyTier, name) }
func Root(dir string) slog.Attr { return slog.String(KeyRoot, dir) }
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }
func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }

// DurationMs returns a slog.Attr for an elapsed duration in milliseconds.
func DurationMs(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMs, float64(d.Microseconds())/1000.0)
}

// Err returns a slog.Attr for an error; nil errors produce an empty attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
