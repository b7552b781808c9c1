package value

import "math"

// Raw is melbi's untyped tagged cell (spec §3.2). Its interpretation
// is fixed entirely by an accompanying *types.Type the holder carries
// out of band — a Raw is never inspected on its own.
//
// The spec's reference encoding bit-packs Raw into one or two machine
// words via manual pointer tagging. Go offers no safe way to do that
// (and the teacher corpus never reaches for `unsafe` to get it), so
// Raw instead uses the field that a given Type's Kind implies:
// Num for inline scalars, Ptr for every pointer-backed variant. This
// keeps the two-tier discipline (Raw is meaningless without a Type)
// while staying inside safe Go; see DESIGN.md for the trade-off this
// makes against the spec's literal bit-packing.
type Raw struct {
	Num uint64 // Int (as bits), Float (via math.Float64bits), Bool (0/1)
	Ptr any    // *arrayObj, *recordObj, *mapObj, *optionObj, string, []byte, *FuncObj
}

func rawInt(i int64) Raw     { return Raw{Num: uint64(i)} }
func rawFloat(f float64) Raw { return Raw{Num: math.Float64bits(f)} }
func rawBool(b bool) Raw {
	if b {
		return Raw{Num: 1}
	}
	return Raw{Num: 0}
}
func rawPtr(p any) Raw { return Raw{Ptr: p} }

func (r Raw) asInt() int64     { return int64(r.Num) }
func (r Raw) asFloat() float64 { return math.Float64frombits(r.Num) }
func (r Raw) asBool() bool     { return r.Num != 0 }

// arrayObj backs Array values: a contiguous run of raw elements whose
// shared element type lives in the parent *types.Type, not per slot.
type arrayObj struct {
	elems []Raw
}

// recordObj backs Record values: raw fields in the field-sorted order
// fixed by the Record's *types.Type.
type recordObj struct {
	fields []Raw
}

// mapEntry is one sorted (key, value) pair inside a mapObj.
type mapEntry struct {
	key Raw
	val Raw
}

// mapObj backs Map values: entries sorted by key and deduplicated
// (last write wins) at construction time.
type mapObj struct {
	entries []mapEntry
}

// optionObj backs a Some payload; a nil *optionObj (or a nil Ptr on
// the owning Raw) represents None.
type optionObj struct {
	inner Raw
}

// FuncObj backs Function values: either a native callback or a
// bytecode closure. Defined here (rather than in internal/vm) so that
// internal/value has no import-cycle dependency on the compiler/VM.
type FuncObj struct {
	Name    string
	Native  NativeFunc
	Closure *Closure
}

// NativeFunc is the FFI calling convention (spec §4.1.4, §6.3): given
// an FfiContext and type-and-count-checked arguments, produce a Value
// or an execution error. Declared here as a function type so
// internal/value can construct Function values without importing the
// VM; internal/ffi and internal/stdlib are the usual callers.
type NativeFunc func(ctx *FfiContext, args []Value) (Value, error)

// Closure is the VM's compiled representation of a melbi lambda:
// captured values plus one or more specialized code bodies
// (monomorphised per spec §4.3.3/§9). The concrete type is
// *compiler.Code; Closure stores it as an opaque `any` to avoid a
// dependency cycle (value <- compiler, never the reverse).
// internal/treeeval does not use Closure: its lambdas are Native
// functions.
type Closure struct {
	Captures []Value
	// Dispatch maps a concrete parameter-type signature (the function
	// Type's String() form) to compiled code. A monomorphic closure has
	// exactly one entry; a polymorphic closure has one per observed
	// instantiation (spec §4.3.3).
	Dispatch map[string]any
}
