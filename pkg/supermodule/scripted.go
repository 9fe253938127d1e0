package supermodule

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/pulsarchem/pulsar/pkg/moduleinfo"
	"github.com/pulsarchem/pulsar/pkg/script"
)

type scriptedRecord struct {
	rt       *script.Runtime
	creators *Creators
}

// ScriptedLoader opens ".js" packages by running them in a dedicated
// script.Runtime. There is no search-path manipulation needed the way a
// host scripting interpreter's import system would require, since each
// supermodule gets its own isolated VM; the file is simply read and
// evaluated in it.
type ScriptedLoader struct {
	mu      sync.Mutex
	records map[string]*scriptedRecord
}

// NewScriptedLoader constructs an empty loader.
func NewScriptedLoader() *ScriptedLoader {
	return &ScriptedLoader{records: make(map[string]*scriptedRecord)}
}

// Accepts reports whether path has the scripted package suffix.
func (l *ScriptedLoader) Accepts(path string) bool {
	return strings.HasSuffix(path, ".js")
}

// Load reads and evaluates the script at path, then calls
// initialize_supermodule (if defined) and insert_supermodule.
func (l *ScriptedLoader) Load(path string) (*Creators, error) {
	canonical, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("supermodule: canonicalize %q: %w: %v", path, ErrSupermoduleLoad, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.records[canonical]; ok {
		return rec.creators, nil
	}

	src, err := os.ReadFile(canonical)
	if err != nil {
		return nil, fmt.Errorf("supermodule: read %q: %w: %v", canonical, ErrSupermoduleLoad, err)
	}

	rt := script.NewRuntime()
	if _, err := rt.RunSource(canonical, string(src)); err != nil {
		return nil, fmt.Errorf("supermodule: evaluate %q: %w: %v", canonical, ErrSupermoduleLoad, err)
	}

	if _, ok := rt.Global("initialize_supermodule"); ok {
		if _, err := rt.CallGlobal("initialize_supermodule"); err != nil {
			return nil, fmt.Errorf("supermodule: initialize_supermodule in %q: %w: %v", canonical, ErrSupermoduleLoad, err)
		}
	}

	if _, ok := rt.Global("insert_supermodule"); !ok {
		return nil, fmt.Errorf("supermodule: %q missing insert_supermodule: %w", canonical, ErrSupermoduleLoad)
	}
	creators, err := buildScriptedCreators(rt)
	if err != nil {
		return nil, fmt.Errorf("supermodule: insert_supermodule in %q: %w: %v", canonical, ErrSupermoduleLoad, err)
	}

	l.records[canonical] = &scriptedRecord{rt: rt, creators: creators}
	return creators, nil
}

// buildScriptedCreators calls insert_supermodule and adapts its result — a
// JS object mapping module-class-name to a constructor function — into a
// Creators table whose factories are trampolines over script.Instance.
func buildScriptedCreators(rt *script.Runtime) (*Creators, error) {
	raw, ok := rt.Global("insert_supermodule")
	if !ok {
		return nil, fmt.Errorf("supermodule: insert_supermodule not defined")
	}
	fn, ok := goja.AssertFunction(raw)
	if !ok {
		return nil, fmt.Errorf("supermodule: insert_supermodule is not callable")
	}
	result, err := fn(goja.Undefined())
	if err != nil {
		return nil, err
	}
	table, ok := result.(*goja.Object)
	if !ok {
		return nil, fmt.Errorf("supermodule: insert_supermodule must return an object")
	}

	creators := NewCreators()
	for _, name := range table.Keys() {
		ctorVal := table.Get(name)
		ctor, ok := goja.AssertFunction(ctorVal)
		if !ok {
			return nil, fmt.Errorf("supermodule: entry %q is not a constructor", name)
		}
		info := moduleinfo.Info{Name: name}
		factory := func(id uint64) (any, error) {
			idVal, err := rt.ValueOf(int64(id))
			if err != nil {
				return nil, err
			}
			obj, err := ctor(goja.Undefined(), idVal)
			if err != nil {
				return nil, err
			}
			asObj, ok := obj.(*goja.Object)
			if !ok {
				return nil, fmt.Errorf("supermodule: constructor for %q did not return an object", name)
			}
			return script.WrapInstance(rt, asObj), nil
		}
		if err := creators.AddScripted(name, info, factory); err != nil {
			return nil, err
		}
	}
	return creators, nil
}

// Close clears the creators table, calls finalize_supermodule if the script
// defines it (ignoring any error it raises), and drops the reference to the
// scripted package's runtime. The scripting runtime itself holds no
// OS-level resource to release.
func (l *ScriptedLoader) Close(path string) error {
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
	if _, ok := rec.rt.Global("finalize_supermodule"); ok {
		_, _ = rec.rt.CallGlobal("finalize_supermodule")
	}
	return nil
}
