package script

import (
	"testing"

	"github.com/dop251/goja"
)

func TestCallGlobalRoundTripsScalars(t *testing.T) {
	rt := NewRuntime()
	if _, err := rt.RunSource("test.js", `function double(n) { return n * 2; }`); err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	result, err := rt.CallGlobal("double", int64(21))
	if err != nil {
		t.Fatalf("CallGlobal: %v", err)
	}
	if result != int64(42) {
		t.Fatalf("got %v (%T)", result, result)
	}
}

func TestCallGlobalMissingFunction(t *testing.T) {
	rt := NewRuntime()
	if _, err := rt.CallGlobal("nope"); err == nil {
		t.Fatalf("expected error calling undefined global")
	}
}

func TestInstanceTrampolineDispatchesToScriptedMethod(t *testing.T) {
	rt := NewRuntime()
	val, err := rt.RunSource("test.js", `({ greet: function(name) { return "hi " + name; } })`)
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	obj, ok := val.(*goja.Object)
	if !ok {
		t.Fatalf("expected object result")
	}
	inst := WrapInstance(rt, obj)
	if !inst.HasMethod("greet") {
		t.Fatalf("expected HasMethod(greet) true")
	}
	out, err := inst.Call("greet", "world")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out != "hi world" {
		t.Fatalf("got %v", out)
	}
}

func TestInstanceCallMissingMethod(t *testing.T) {
	rt := NewRuntime()
	val, _ := rt.RunSource("test.js", `({})`)
	obj := val.(*goja.Object)
	inst := WrapInstance(rt, obj)
	if inst.HasMethod("missing") {
		t.Fatalf("expected HasMethod false for undefined member")
	}
	if _, err := inst.Call("missing"); err == nil {
		t.Fatalf("expected error calling missing method")
	}
}

func TestToGojaRejectsUnsupportedType(t *testing.T) {
	vm := goja.New()
	type notSupported struct{}
	if _, err := ToGoja(vm, notSupported{}); err == nil {
		t.Fatalf("expected error converting unsupported type")
	}
}

func TestFromGojaHomogeneousSequence(t *testing.T) {
	rt := NewRuntime()
	val, err := rt.RunSource("test.js", `[1, 2, 3]`)
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	out, err := FromGoja(val)
	if err != nil {
		t.Fatalf("FromGoja: %v", err)
	}
	seq, ok := out.([]int64)
	if !ok || len(seq) != 3 {
		t.Fatalf("got %v (%T)", out, out)
	}
}

func TestFromGojaHeterogeneousSequenceErrors(t *testing.T) {
	rt := NewRuntime()
	val, err := rt.RunSource("test.js", `[1, "two", 3]`)
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if _, err := FromGoja(val); err == nil {
		t.Fatalf("expected HeterogeneousSequenceError")
	}
}
