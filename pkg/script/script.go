// Package script bridges the native core to modules written in an embedded
// scripting language. It wraps goja, a pure-Go ECMAScript implementation,
// since a scripted supermodule is itself a portable script file rather than
// a platform-specific shared object.
//
// © 2026 pulsar authors. MIT License.
package script

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/pulsarchem/pulsar/internal/telemetry"
)

// Runtime is a single goja VM. goja.Runtime is not safe for concurrent use,
// so every entry point here takes Runtime's lock for the duration of the
// call — scripted modules execute one call at a time per supermodule,
// matching the single-writer expectation the loader already has for that
// supermodule's state.
type Runtime struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	metrics telemetry.Sink
}

// NewRuntime constructs a fresh VM.
func NewRuntime() *Runtime {
	return &Runtime{vm: goja.New(), metrics: telemetry.Noop{}}
}

// WithMetrics attaches a telemetry.Sink observing scripted-bridge call
// counts, labeled by method name. Call it before the runtime is shared
// across goroutines.
func (r *Runtime) WithMetrics(sink telemetry.Sink) *Runtime {
	r.metrics = sink
	return r
}

// RunSource compiles and evaluates src (typically a whole supermodule file)
// and returns its completion value.
func (r *Runtime) RunSource(name, src string) (goja.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vm.RunScript(name, src)
}

// Global looks up a top-level binding by name, e.g. "insert_supermodule".
func (r *Runtime) Global(name string) (goja.Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.vm.Get(name)
	if v == nil || goja.IsUndefined(v) {
		return nil, false
	}
	return v, true
}

// CallGlobal invokes the zero-or-more-argument top-level function bound to
// name, converting args with ToGoja and the result with FromGoja.
func (r *Runtime) CallGlobal(name string, args ...any) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fnVal := r.vm.Get(name)
	if fnVal == nil || goja.IsUndefined(fnVal) {
		return nil, fmt.Errorf("script: global %q is not defined", name)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, fmt.Errorf("script: global %q is not callable", name)
	}

	gojaArgs := make([]goja.Value, len(args))
	for i, a := range args {
		v, err := r.toGoja(a)
		if err != nil {
			return nil, err
		}
		gojaArgs[i] = v
	}

	result, err := fn(goja.Undefined(), gojaArgs...)
	if err != nil {
		return nil, err
	}
	return r.fromGoja(result)
}

// Instance is a scripted object produced by a scripted module's class
// constructor — the runtime holder side of the implementation-holder
// abstraction. Every ModuleBase virtual dispatched to a scripted module goes
// through Call, which is the trampoline: it looks up a same-named method on
// the underlying object and invokes it.
type Instance struct {
	rt  *Runtime
	obj *goja.Object
}

// WrapInstance adopts an already-constructed script object as an Instance.
func WrapInstance(rt *Runtime, obj *goja.Object) *Instance {
	return &Instance{rt: rt, obj: obj}
}

// Call is the trampoline: it looks up method on the underlying scripted
// object and invokes it with args, converting both directions across the
// language boundary.
func (inst *Instance) Call(method string, args ...any) (any, error) {
	inst.rt.mu.Lock()
	defer inst.rt.mu.Unlock()

	methodVal := inst.obj.Get(method)
	if methodVal == nil || goja.IsUndefined(methodVal) {
		return nil, fmt.Errorf("script: method %q not implemented by scripted module", method)
	}
	fn, ok := goja.AssertFunction(methodVal)
	if !ok {
		return nil, fmt.Errorf("script: member %q is not callable", method)
	}

	gojaArgs := make([]goja.Value, len(args))
	for i, a := range args {
		v, err := inst.rt.toGoja(a)
		if err != nil {
			return nil, err
		}
		gojaArgs[i] = v
	}

	result, err := fn(inst.obj, gojaArgs...)
	inst.rt.metrics.IncCounter("script_calls_total", method)
	if err != nil {
		return nil, err
	}
	return inst.rt.fromGoja(result)
}

// HasMethod reports whether the underlying object defines method as a
// function, used by module.IsType to check a scripted object against an
// interface's method set.
func (inst *Instance) HasMethod(method string) bool {
	inst.rt.mu.Lock()
	defer inst.rt.mu.Unlock()
	v := inst.obj.Get(method)
	_, ok := goja.AssertFunction(v)
	return ok
}

// HeterogeneousSequenceError is raised converting a JS array whose elements
// do not share a single tag.
type HeterogeneousSequenceError struct{}

func (*HeterogeneousSequenceError) Error() string {
	return "script: heterogeneous sequence cannot cross the script boundary"
}

func (r *Runtime) toGoja(v any) (goja.Value, error)   { return toGoja(r.vm, v) }
func (r *Runtime) fromGoja(v goja.Value) (any, error) { return fromGoja(v) }

// ValueOf converts a native value into a goja.Value bound to this runtime's
// VM, for callers (e.g. a scripted-module constructor invocation) that need
// to build call arguments outside of CallGlobal/Call.
func (r *Runtime) ValueOf(v any) (goja.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return toGoja(r.vm, v)
}

// ToGoja converts a native scalar or homogeneous sequence value into a goja
// value, per the reversible conversion table: bool<->bool, int64<->integer,
// float64<->float, string<->string, and ordered sequences of each.
func ToGoja(vm *goja.Runtime, v any) (goja.Value, error) { return toGoja(vm, v) }

func toGoja(vm *goja.Runtime, v any) (goja.Value, error) {
	switch x := v.(type) {
	case nil:
		return goja.Undefined(), nil
	case bool:
		return vm.ToValue(x), nil
	case int64:
		return vm.ToValue(x), nil
	case float64:
		return vm.ToValue(x), nil
	case string:
		return vm.ToValue(x), nil
	case []bool:
		arr := make([]any, len(x))
		for i, e := range x {
			arr[i] = e
		}
		return vm.ToValue(arr), nil
	case []int64:
		arr := make([]any, len(x))
		for i, e := range x {
			arr[i] = e
		}
		return vm.ToValue(arr), nil
	case []float64:
		arr := make([]any, len(x))
		for i, e := range x {
			arr[i] = e
		}
		return vm.ToValue(arr), nil
	case []string:
		arr := make([]any, len(x))
		for i, e := range x {
			arr[i] = e
		}
		return vm.ToValue(arr), nil
	default:
		return nil, fmt.Errorf("script: unsupported value type %T crossing into script", v)
	}
}

// FromGoja converts a goja value back into one of the supported native
// shapes. A JS array converts to the shape of its first element's tag if and
// only if every element shares that tag; otherwise it is a
// HeterogeneousSequenceError.
func FromGoja(v goja.Value) (any, error) { return fromGoja(v) }

func fromGoja(v goja.Value) (any, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	if obj, ok := v.(*goja.Object); ok && obj.ClassName() == "Array" {
		return arrayFromGoja(obj)
	}
	exported := v.Export()
	switch x := exported.(type) {
	case bool:
		return x, nil
	case int64:
		return x, nil
	case float64:
		return x, nil
	case string:
		return x, nil
	default:
		return nil, fmt.Errorf("script: unsupported value type %T crossing out of script", exported)
	}
}

func arrayFromGoja(obj *goja.Object) (any, error) {
	length := int(obj.Get("length").ToInteger())
	if length == 0 {
		return []string{}, nil
	}
	elems := make([]any, length)
	for i := 0; i < length; i++ {
		v, err := fromGoja(obj.Get(fmt.Sprintf("%d", i)))
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}

	switch elems[0].(type) {
	case bool:
		out := make([]bool, length)
		for i, e := range elems {
			b, ok := e.(bool)
			if !ok {
				return nil, &HeterogeneousSequenceError{}
			}
			out[i] = b
		}
		return out, nil
	case int64:
		out := make([]int64, length)
		for i, e := range elems {
			n, ok := e.(int64)
			if !ok {
				return nil, &HeterogeneousSequenceError{}
			}
			out[i] = n
		}
		return out, nil
	case float64:
		out := make([]float64, length)
		for i, e := range elems {
			f, ok := e.(float64)
			if !ok {
				return nil, &HeterogeneousSequenceError{}
			}
			out[i] = f
		}
		return out, nil
	case string:
		out := make([]string, length)
		for i, e := range elems {
			s, ok := e.(string)
			if !ok {
				return nil, &HeterogeneousSequenceError{}
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, &HeterogeneousSequenceError{}
	}
}
