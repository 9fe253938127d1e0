// Package valuetag defines the closed set of value shapes that flow through
// PropertyBag, OptionMap, and CacheData. The original bpmodule/datastore
// layer discriminated stored values with compiler RTTI strings; we use an
// explicit enumeration instead so that equality and dispatch never depend on
// a particular compiler's name-mangling scheme.
//
// Registering additional tags is permitted by higher layers without changing
// this package, as long as they stay within the wire format: scalars
// (bool, int64, float64, string) and ordered sequences of each.
package valuetag

import "fmt"

// Tag identifies the runtime shape of a boxed value.
type Tag uint8

const (
	Invalid Tag = iota
	Bool
	Int64
	Float64
	String
	BoolSeq
	Int64Seq
	Float64Seq
	StringSeq
)

// String renders the tag for error messages and debug output.
func (t Tag) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case String:
		return "string"
	case BoolSeq:
		return "[]bool"
	case Int64Seq:
		return "[]int64"
	case Float64Seq:
		return "[]float64"
	case StringSeq:
		return "[]string"
	default:
		return "invalid"
	}
}

// TagOf infers the Tag of a supported Go value. It returns Invalid for any
// shape PropertyBag does not natively support (heterogeneous sequences are
// impossible to construct in Go's type system here, since only homogeneous
// slice types are accepted as input in the first place).
func TagOf(v any) Tag {
	switch v.(type) {
	case bool:
		return Bool
	case int64:
		return Int64
	case float64:
		return Float64
	case string:
		return String
	case []bool:
		return BoolSeq
	case []int64:
		return Int64Seq
	case []float64:
		return Float64Seq
	case []string:
		return StringSeq
	default:
		return Invalid
	}
}

// Clone returns a deep copy of v. Scalars are copied by value already;
// slices are copied element-wise so no two Entries ever alias backing arrays.
func Clone(tag Tag, v any) any {
	switch tag {
	case BoolSeq:
		s := v.([]bool)
		out := make([]bool, len(s))
		copy(out, s)
		return out
	case Int64Seq:
		s := v.([]int64)
		out := make([]int64, len(s))
		copy(out, s)
		return out
	case Float64Seq:
		s := v.([]float64)
		out := make([]float64, len(s))
		copy(out, s)
		return out
	case StringSeq:
		s := v.([]string)
		out := make([]string, len(s))
		copy(out, s)
		return out
	default:
		return v
	}
}

// Equal reports whether a and b (both tagged tag) are deeply equal.
func Equal(tag Tag, a, b any) bool {
	switch tag {
	case Bool:
		return a.(bool) == b.(bool)
	case Int64:
		return a.(int64) == b.(int64)
	case Float64:
		return a.(float64) == b.(float64)
	case String:
		return a.(string) == b.(string)
	case BoolSeq:
		return equalSlice(a.([]bool), b.([]bool))
	case Int64Seq:
		return equalSlice(a.([]int64), b.([]int64))
	case Float64Seq:
		return equalSlice(a.([]float64), b.([]float64))
	case StringSeq:
		return equalSlice(a.([]string), b.([]string))
	default:
		return false
	}
}

func equalSlice[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// UnsupportedTypeError is raised whenever a value does not map onto any
// supported Tag (e.g. a struct, map, or heterogeneous slice literal built via
// reflection from outside this package).
type UnsupportedTypeError struct {
	Value any
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("valuetag: unsupported value type %T", e.Value)
}
