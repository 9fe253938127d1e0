// Package supermodule implements SupermoduleLoader and ModuleCreators: the
// pluggable mechanism by which a ModuleManager discovers module classes from
// a native shared object or a scripted package.
//
// © 2026 pulsar authors. MIT License.
package supermodule

import (
	"fmt"
	"sync"

	"github.com/pulsarchem/pulsar/pkg/moduleinfo"
)

// Factory produces a fresh module implementation instance for the given
// instantiation id. The returned value is runtime-checked by the caller
// against whatever interface it requested.
type Factory func(id uint64) (any, error)

// ErrDuplicateModuleName is returned by Creators.AddNative and
// Creators.AddScripted when name is already registered.
var ErrDuplicateModuleName = fmt.Errorf("supermodule: duplicate module name")

// ErrUnknownModuleName is returned by Creators.Get when name was never
// registered.
var ErrUnknownModuleName = fmt.Errorf("supermodule: unknown module name")

type creatorEntry struct {
	info    moduleinfo.Info
	factory Factory
}

// Creators is a registry of module-class-name to (default Info, Factory)
// pairs, returned by insert_supermodule.
type Creators struct {
	mu      sync.RWMutex
	entries map[string]creatorEntry
}

// NewCreators constructs an empty registry.
func NewCreators() *Creators {
	return &Creators{entries: make(map[string]creatorEntry)}
}

// AddNative registers a compile-time-bound module class.
func (c *Creators) AddNative(name string, info moduleinfo.Info, factory Factory) error {
	return c.add(name, info, factory)
}

// AddScripted registers a runtime-bound module class backed by a scripted
// class object; callers typically build factory by closing over a
// script.Runtime and a constructor name.
func (c *Creators) AddScripted(name string, info moduleinfo.Info, factory Factory) error {
	return c.add(name, info, factory)
}

func (c *Creators) add(name string, info moduleinfo.Info, factory Factory) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("supermodule: add %q: %w", name, ErrDuplicateModuleName)
	}
	c.entries[name] = creatorEntry{info: info, factory: factory}
	return nil
}

// Has reports whether name is registered.
func (c *Creators) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[name]
	return ok
}

// Get returns the default Info and Factory for name.
func (c *Creators) Get(name string) (moduleinfo.Info, Factory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok {
		return moduleinfo.Info{}, nil, fmt.Errorf("supermodule: get %q: %w", name, ErrUnknownModuleName)
	}
	return e.info, e.factory, nil
}

// Names returns every registered module-class name, in no particular order.
func (c *Creators) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for name := range c.entries {
		out = append(out, name)
	}
	return out
}

// Clear empties the registry. Must be called before the owning supermodule
// handle is released, since factory closures may hold references into that
// supermodule's code.
func (c *Creators) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]creatorEntry)
}
