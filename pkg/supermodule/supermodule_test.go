package supermodule

import (
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const sampleSupermodule = `
var initCalls = 0;
function initialize_supermodule() { initCalls++; }
function insert_supermodule() {
	return {
		"echo": function(id) {
			return {
				id: id,
				run: function(msg) { return "echo:" + msg; }
			};
		}
	};
}
`

func TestScriptedLoaderLoadsCreators(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "echo.js", sampleSupermodule)

	loader := NewScriptedLoader()
	creators, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !creators.Has("echo") {
		t.Fatalf("expected creators to have module-class 'echo'")
	}
}

func TestScriptedLoaderIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "echo.js", sampleSupermodule)

	loader := NewScriptedLoader()
	c1, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c2, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load (second): %v", err)
	}
	if c1 != c2 {
		t.Fatalf("expected repeated loads to return the same Creators object")
	}
}

func TestScriptedFactoryProducesCallableInstance(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "echo.js", sampleSupermodule)

	loader := NewScriptedLoader()
	creators, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, factory, err := creators.Get("echo")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	instAny, err := factory(1)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	inst, ok := instAny.(interface {
		Call(method string, args ...any) (any, error)
	})
	if !ok {
		t.Fatalf("expected factory product to expose Call")
	}
	out, err := inst.Call("run", "hi")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out != "echo:hi" {
		t.Fatalf("got %v", out)
	}
}

func TestHostLoadSupermoduleDedupesByCanonicalPath(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "echo.js", sampleSupermodule)

	host := NewHost(nil, NewScriptedLoader())
	c1, err := host.LoadSupermodule(path)
	if err != nil {
		t.Fatalf("LoadSupermodule: %v", err)
	}
	c2, err := host.LoadSupermodule(path)
	if err != nil {
		t.Fatalf("LoadSupermodule (second): %v", err)
	}
	if c1 != c2 {
		t.Fatalf("expected idempotent load to return the same Creators")
	}
}

func TestHostLoadSupermoduleNoAcceptingLoader(t *testing.T) {
	host := NewHost(nil, NewScriptedLoader())
	if _, err := host.LoadSupermodule("/tmp/does-not-matter.unknownext"); err == nil {
		t.Fatalf("expected error when no loader accepts the path")
	}
}

func TestHostCloseClearsRecords(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "echo.js", sampleSupermodule)

	host := NewHost(nil, NewScriptedLoader())
	if _, err := host.LoadSupermodule(path); err != nil {
		t.Fatalf("LoadSupermodule: %v", err)
	}
	host.Close()
	if _, ok := host.Record(path); ok {
		t.Fatalf("expected record removed after Close")
	}
}
