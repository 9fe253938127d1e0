package module

import (
	"fmt"
	"reflect"

	"github.com/pulsarchem/pulsar/pkg/script"
)

// Holder unites a native Go instance and a scripted instance behind one
// value — the implementation-holder GetModule and Dispatch need so the rest
// of the framework can treat a native-backed and a scripted-backed module
// instance identically. GetModule constructs one for every module-class
// whose factory returns a *script.Instance, since a scripted object has no
// Go struct of its own to embed a Base into. A native module never needs a
// Holder: it embeds Base directly and satisfies its own domain interface.
type Holder struct {
	Base
	native any
}

// NativePointer returns the underlying native Go value, or nil if this
// holder wraps a scripted instance instead.
func (h *Holder) NativePointer() any { return h.native }

// ScriptedObject returns the underlying scripted instance, or nil if this
// holder wraps a native value instead. Equivalent to Trampoline, named to
// pair with NativePointer.
func (h *Holder) ScriptedObject() *script.Instance { return h.Trampoline() }

// IsType reports whether h's underlying instance satisfies T. A native
// instance is checked with a plain Go type assertion. A scripted instance
// has no Go type to assert against, so it is checked structurally instead:
// T must be an interface, and the scripted object must define every method
// named in T's method set. This is the scripted analogue of a dynamic_cast
// success check, used to decide whether a caller holding a *Holder may call
// Invoke for a given R.
func IsType[T any](h *Holder) bool {
	if h.native != nil {
		_, ok := h.native.(T)
		return ok
	}
	inst := h.Trampoline()
	if inst == nil {
		return false
	}
	ifaceType := reflect.TypeOf((*T)(nil)).Elem()
	if ifaceType.Kind() != reflect.Interface {
		return false
	}
	for i := 0; i < ifaceType.NumMethod(); i++ {
		if !inst.HasMethod(ifaceType.Method(i).Name) {
			return false
		}
	}
	return true
}

// Invoke calls method on h's scripted object, converting args and the
// result across the language boundary and wrapping any failure in a
// CallError exactly as DispatchValue does for a native call — it IS
// DispatchValue, routed through h's embedded Base, which carries the
// scripted trampoline IsType above confirmed method is defined on. Calling
// Invoke on a native-backed Holder (one where NativePointer is non-nil)
// fails, since native modules are called through their own Go methods
// instead.
func Invoke[R any](h *Holder, method string, args ...any) (R, error) {
	return DispatchValue(&h.Base, method, func() (R, error) {
		var zero R
		return zero, fmt.Errorf("module: %q: %s has no scripted instance to invoke", method, h.Name())
	}, args...)
}
