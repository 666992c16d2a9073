// Package adapter is the pluggable-input extension point for the
// Complexity Engine: it lets a caller register named factories producing
// complexity.InputAdapter values, so a custom upstream source (an
// alternative gateway, a replayed fixture, a non-Go producer feeding
// GenericInput JSON over a pipe) can be selected by name instead of wired
// by hand at every call site.
//
// Registration contract:
//   - Build must be safe to call repeatedly and must not block on I/O.
//   - Build must not panic; return an error instead.
//   - Name must be a stable, unique string (used as the selection key).
package adapter

import (
	"fmt"
	"sync"

	"github.com/fathomio/fathom-core/internal/complexity"
)

// Factory builds an InputAdapter from a raw payload (typically JSON bytes
// describing one cycle's metrics from whatever source registered it).
type Factory interface {
	// Name returns the unique identifier for this adapter kind. Used as
	// the config/CLI selection key (e.g. "gateway", "generic-json").
	Name() string

	// Build parses payload and returns an InputAdapter ready for
	// ToInputSnapshot. Returns an error if payload does not match this
	// adapter's expected shape.
	Build(payload []byte) (complexity.InputAdapter, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a Factory under its own Name(). Panics if a factory with
// the same name is already registered; call from an init() function in
// the adapter's own package.
func Register(f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[f.Name()]; exists {
		panic(fmt.Sprintf("adapter: factory %q already registered", f.Name()))
	}
	registry[f.Name()] = f
}

// Get returns the registered Factory with the given name.
func Get(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("adapter: factory %q not registered (available: %v)", name, names())
	}
	return f, nil
}

// Names returns the registered factory names.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return names()
}

func names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}

// Build looks up name and parses payload through it in one call.
func Build(name string, payload []byte) (complexity.InputAdapter, error) {
	f, err := Get(name)
	if err != nil {
		return nil, err
	}
	return f.Build(payload)
}
