package value

import (
	"fmt"

	"github.com/melbi-lang/melbi/internal/types"
)

// Typed is a compile-time-monomorphic FFI wrapper over Raw for a
// single marshalled Go type T (spec §3.3). Unlike Dynamic, a Typed[T]
// carries no runtime type tag of its own — the caller already knows T
// statically, so construction is a direct Raw reinterpretation with no
// branch, and converts to/from Dynamic in O(1).
//
// Go's type system cannot express "this Raw is statically known to
// hold a T" without either unsafe casts or one generated accessor per
// T; Typed instead exposes that contract as a small closed set of Go
// marshal targets (int64, float64, bool, string), the same shape the
// FFI shim macro in the original Rust implementation
// (macros/src/melbi_fn_old.rs) generates per-function signature. This
// keeps "no runtime type check on the happy path, the engine already
// checked it" without needing actual Go code generation for this spec.
type Typed[T int64 | float64 | bool | string] struct {
	Raw Raw
}

// Get extracts the marshalled Go value with no further type check.
func (t Typed[T]) Get() T {
	var zero T
	switch any(zero).(type) {
	case int64:
		return any(t.Raw.asInt()).(T)
	case float64:
		return any(t.Raw.asFloat()).(T)
	case bool:
		return any(t.Raw.asBool()).(T)
	case string:
		return any(t.Raw.Ptr.(string)).(T)
	default:
		panic(fmt.Sprintf("Typed.Get: unsupported marshal type %T", zero))
	}
}

func toRaw[T int64 | float64 | bool | string](v T) Raw {
	switch x := any(v).(type) {
	case int64:
		return rawInt(x)
	case float64:
		return rawFloat(x)
	case bool:
		return rawBool(x)
	case string:
		return rawPtr(x)
	default:
		panic(fmt.Sprintf("toRaw: unsupported marshal type %T", v))
	}
}

// NewTyped wraps a native Go value directly as a Typed[T], for native
// functions building their own return value.
func NewTyped[T int64 | float64 | bool | string](v T) Typed[T] {
	return Typed[T]{Raw: toRaw(v)}
}

// typeOf returns the interned melbi type corresponding to T.
func typeOf[T int64 | float64 | bool | string](r *types.Registry) *types.Type {
	var zero T
	switch any(zero).(type) {
	case int64:
		return r.Int()
	case float64:
		return r.Float()
	case bool:
		return r.Bool()
	case string:
		return r.Str()
	default:
		panic(fmt.Sprintf("typeOf: unsupported marshal type %T", zero))
	}
}

// ToDynamic converts a Typed[T] to a Dynamic value in O(1) by pairing
// it with the interned type for T.
func ToDynamic[T int64 | float64 | bool | string](r *types.Registry, t Typed[T]) Value {
	return Value{Typ: typeOf[T](r), Raw: t.Raw}
}

// ExpectTyped checks v's runtime type matches T's interned type and
// returns the Typed wrapper; this is the one check paid at the FFI
// boundary when a native function wants the ergonomic typed form
// instead of working with Dynamic/Raw directly.
func ExpectTyped[T int64 | float64 | bool | string](r *types.Registry, v Value) (Typed[T], error) {
	want := typeOf[T](r)
	if !v.Typ.Equals(want) {
		return Typed[T]{}, fmt.Errorf("expected %s, got %s", want, v.Typ)
	}
	return Typed[T]{Raw: v.Raw}, nil
}
