// Package flags provides feature flags for optional partgraph behavior.
// Flags are read-only after initialization and unknown flags are disabled.
package flags

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/zjrosen/partgraph/internal/log"
)

// Flag name constants for type-safe flag access.
const (
	// FlagFrameworkTypes registers the built-in framework types (System.Object,
	// primitives and the wrapper definitions) before scanning manifests.
	FlagFrameworkTypes = "framework-types"

	// FlagPruneSnapshots makes scan delete stored snapshots of manifests that
	// are no longer present. Leave it off when several projects share one store.
	FlagPruneSnapshots = "prune-snapshots"
)

var known = []string{FlagFrameworkTypes, FlagPruneSnapshots}

// Known returns every flag name partgraph understands, sorted.
func Known() []string {
	out := slices.Clone(known)
	slices.Sort(out)
	return out
}

// Validate rejects flag names partgraph does not understand.
func Validate(flags map[string]bool) error {
	var unknown []string
	for name := range flags {
		if !slices.Contains(known, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return fmt.Errorf("unknown flags %s (known: %s)", strings.Join(unknown, ", "), strings.Join(Known(), ", "))
}

// Registry holds feature flag state loaded from configuration.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map.
// If flags is nil, an empty registry is created (all flags disabled).
func New(flags map[string]bool) *Registry {
	r := &Registry{flags: maps.Clone(flags)}
	if r.flags == nil {
		r.flags = make(map[string]bool)
	}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(r.flags), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is enabled.
// Returns false for unknown flags and on a nil registry.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	return r.flags[name]
}

// All returns a copy of all flags (for debugging/logging).
// Returns an empty map if the registry is nil.
func (r *Registry) All() map[string]bool {
	if r == nil {
		return make(map[string]bool)
	}
	return maps.Clone(r.flags)
}
