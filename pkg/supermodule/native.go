package supermodule

import (
	"fmt"
	"path/filepath"
	"plugin"
	"strings"
	"sync"
)

// Exported plugin symbol names. Go's plugin.Lookup only resolves exported
// (capitalized) package-level identifiers, so a native supermodule is a Go
// plugin exposing these three instead of C-linkage snake_case symbols.
const (
	symInsertSupermodule     = "InsertSupermodule"
	symInitializeSupermodule = "InitializeSupermodule"
	symFinalizeSupermodule   = "FinalizeSupermodule"
)

type nativeRecord struct {
	plug     *plugin.Plugin
	creators *Creators
	finalize func()
}

// NativeLoader opens ".so" native Go plugins. The Go toolchain's plugin
// package has no unload primitive, so Close only runs the supermodule's own
// FinalizeSupermodule hook and forgets the record; the process-level
// resources a loaded plugin occupies are released at process exit, not at
// Close.
type NativeLoader struct {
	mu      sync.Mutex
	records map[string]*nativeRecord
}

// NewNativeLoader constructs an empty loader.
func NewNativeLoader() *NativeLoader {
	return &NativeLoader{records: make(map[string]*nativeRecord)}
}

// Accepts reports whether path has the native plugin suffix.
func (l *NativeLoader) Accepts(path string) bool {
	return strings.HasSuffix(path, ".so")
}

// Load opens the shared object at path, resolves InsertSupermodule, and
// optionally calls InitializeSupermodule before invoking it.
func (l *NativeLoader) Load(path string) (*Creators, error) {
	canonical, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("supermodule: canonicalize %q: %w: %v", path, ErrSupermoduleLoad, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.records[canonical]; ok {
		return rec.creators, nil
	}

	plug, err := plugin.Open(canonical)
	if err != nil {
		return nil, fmt.Errorf("supermodule: open %q: %w: %v", canonical, ErrSupermoduleLoad, err)
	}

	insertSym, err := plug.Lookup(symInsertSupermodule)
	if err != nil {
		return nil, fmt.Errorf("supermodule: %q missing %s: %w: %v", canonical, symInsertSupermodule, ErrSupermoduleLoad, err)
	}
	insert, ok := insertSym.(func() *Creators)
	if !ok {
		return nil, fmt.Errorf("supermodule: %q: %s has wrong signature: %w", canonical, symInsertSupermodule, ErrSupermoduleLoad)
	}

	if initSym, err := plug.Lookup(symInitializeSupermodule); err == nil {
		if init, ok := initSym.(func()); ok {
			init()
		}
	}

	creators := insert()

	var finalize func()
	if finSym, err := plug.Lookup(symFinalizeSupermodule); err == nil {
		if fin, ok := finSym.(func()); ok {
			finalize = fin
		}
	}

	l.records[canonical] = &nativeRecord{plug: plug, creators: creators, finalize: finalize}
	return creators, nil
}

// Close clears the creators table and runs FinalizeSupermodule if present.
// The underlying plugin handle cannot be released by the Go runtime; it is
// simply forgotten.
func (l *NativeLoader) Close(path string) error {
	canonical, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	l.mu.Lock()
	rec, ok := l.records[canonical]
	delete(l.records, canonical)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	rec.creators.Clear()
	if rec.finalize != nil {
		rec.finalize()
	}
	return nil
}
