package value

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/melbi-lang/melbi/internal/types"
)

// Value is a dynamic value: a (Type, Raw) pair, the safe
// language-agnostic runtime handle (spec §3.3).
type Value struct {
	Typ *types.Type
	Raw Raw
}

// Mismatch is returned by compound constructors when the requested
// type and the supplied children disagree (spec §4.1.2).
type Mismatch struct {
	Want *types.Type
	Msg  string
}

func (e *Mismatch) Error() string {
	return fmt.Sprintf("type mismatch constructing %s: %s", e.Want, e.Msg)
}

// Primitive constructors. These take the registry only to produce the
// interned type tag; they cannot fail (spec §4.1.2).

func Int(r *types.Registry, v int64) Value   { return Value{Typ: r.Int(), Raw: rawInt(v)} }
func Float(r *types.Registry, v float64) Value {
	return Value{Typ: r.Float(), Raw: rawFloat(v)}
}
func Bool(r *types.Registry, v bool) Value { return Value{Typ: r.Bool(), Raw: rawBool(v)} }
func Str(r *types.Registry, v string) Value {
	return Value{Typ: r.Str(), Raw: rawPtr(v)}
}
func Bytes(r *types.Registry, v []byte) Value {
	return Value{Typ: r.Bytes(), Raw: rawPtr(v)}
}

// Array constructs an Array(elemType) value from already-typed
// children, failing with Mismatch if any child's type disagrees with
// elemType.
func Array(r *types.Registry, elemType *types.Type, children []Value) (Value, error) {
	raws := make([]Raw, len(children))
	for i, c := range children {
		if !c.Typ.Equals(elemType) {
			return Value{}, &Mismatch{Want: elemType, Msg: fmt.Sprintf("element %d has type %s", i, c.Typ)}
		}
		raws[i] = c.Raw
	}
	t := r.Array(elemType)
	return Value{Typ: t, Raw: rawPtr(&arrayObj{elems: raws})}, nil
}

// Record constructs a Record value. fieldValues must name exactly the
// fields of recordType (any order); the constructor reorders raws into
// the type's field-sorted order.
func Record(recordType *types.Type, fieldValues map[string]Value) (Value, error) {
	if recordType.Kind != types.KRecord {
		return Value{}, &Mismatch{Want: recordType, Msg: "not a record type"}
	}
	if len(fieldValues) != len(recordType.Fields) {
		return Value{}, &Mismatch{Want: recordType, Msg: fmt.Sprintf("expected %d fields, got %d", len(recordType.Fields), len(fieldValues))}
	}
	raws := make([]Raw, len(recordType.Fields))
	for i, f := range recordType.Fields {
		v, ok := fieldValues[f.Name]
		if !ok {
			return Value{}, &Mismatch{Want: recordType, Msg: fmt.Sprintf("missing field %q", f.Name)}
		}
		if !v.Typ.Equals(f.Type) {
			return Value{}, &Mismatch{Want: recordType, Msg: fmt.Sprintf("field %q has type %s, want %s", f.Name, v.Typ, f.Type)}
		}
		raws[i] = v.Raw
	}
	return Value{Typ: recordType, Raw: rawPtr(&recordObj{fields: raws})}, nil
}

// Map constructs a Map(keyType, valueType) value. Keys are sorted and
// deduplicated with last-write-wins (spec §4.1.2, §5 ordering). Keys
// must satisfy Hashable; the caller (analyzer or FFI layer) is
// expected to have already checked this statically.
func Map(r *types.Registry, keyType, valueType *types.Type, pairs []struct {
	Key Value
	Val Value
}) (Value, error) {
	entries := make([]mapEntry, 0, len(pairs))
	for _, p := range pairs {
		if !p.Key.Typ.Equals(keyType) {
			return Value{}, &Mismatch{Want: keyType, Msg: fmt.Sprintf("key has type %s", p.Key.Typ)}
		}
		if !p.Val.Typ.Equals(valueType) {
			return Value{}, &Mismatch{Want: valueType, Msg: fmt.Sprintf("value has type %s", p.Val.Typ)}
		}
		entries = append(entries, mapEntry{key: p.Key.Raw, val: p.Val.Raw})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return compareRaw(keyType, entries[i].key, entries[j].key) < 0
	})
	deduped := entries[:0:0]
	for i, e := range entries {
		if i > 0 && compareRaw(keyType, entries[i-1].key, e.key) == 0 {
			deduped[len(deduped)-1] = e // later entry wins
			continue
		}
		deduped = append(deduped, e)
	}
	t := r.Map(keyType, valueType)
	return Value{Typ: t, Raw: rawPtr(&mapObj{entries: deduped})}, nil
}

// None constructs Option(inner) = None.
func None(r *types.Registry, inner *types.Type) Value {
	return Value{Typ: r.Option(inner), Raw: Raw{Ptr: (*optionObj)(nil)}}
}

// Some constructs Option(inner) = Some(v), failing if v's type
// disagrees with inner.
func Some(r *types.Registry, inner *types.Type, v Value) (Value, error) {
	if !v.Typ.Equals(inner) {
		return Value{}, &Mismatch{Want: inner, Msg: fmt.Sprintf("Some payload has type %s", v.Typ)}
	}
	return Value{Typ: r.Option(inner), Raw: rawPtr(&optionObj{inner: v.Raw})}, nil
}

// Function wraps a native callback or bytecode closure as a dynamic
// Function value (spec §4.1.2).
func Function(r *types.Registry, fnType *types.Type, obj *FuncObj) Value {
	return Value{Typ: fnType, Raw: rawPtr(obj)}
}

// --- Accessors ---

func (v Value) AsInt() int64       { return v.Raw.asInt() }
func (v Value) AsFloat() float64   { return v.Raw.asFloat() }
func (v Value) AsBool() bool       { return v.Raw.asBool() }
func (v Value) AsStr() string      { return v.Raw.Ptr.(string) }
func (v Value) AsBytes() []byte    { return v.Raw.Ptr.([]byte) }
func (v Value) AsFunc() *FuncObj   { return v.Raw.Ptr.(*FuncObj) }

// Elements returns the children of an Array value as a freshly
// allocated slice, pairing each raw cell with the element type (O(N)).
func (v Value) Elements() []Value {
	obj := v.Raw.Ptr.(*arrayObj)
	out := make([]Value, len(obj.elems))
	for i, raw := range obj.elems {
		out[i] = Value{Typ: v.Typ.Elem, Raw: raw}
	}
	return out
}

// Field returns the value of a Record's i'th field (pre-resolved index,
// matching the VM's "never a name at runtime" discipline, spec §4.4.2).
func (v Value) Field(i int) Value {
	obj := v.Raw.Ptr.(*recordObj)
	return Value{Typ: v.Typ.Fields[i].Type, Raw: obj.fields[i]}
}

// IsNone / Unwrap expose the Option tier.
func (v Value) IsNone() bool {
	obj, _ := v.Raw.Ptr.(*optionObj)
	return obj == nil
}
func (v Value) Unwrap() Value {
	obj := v.Raw.Ptr.(*optionObj)
	return Value{Typ: v.Typ.Elem, Raw: obj.inner}
}

// MapLen, MapEntryAt give index-based access for the VM's Map
// operations; MapGet performs the spec's binary-search lookup.
func (v Value) MapLen() int { return len(v.Raw.Ptr.(*mapObj).entries) }
func (v Value) MapEntryAt(i int) (Value, Value) {
	e := v.Raw.Ptr.(*mapObj).entries[i]
	return Value{Typ: v.Typ.Key, Raw: e.key}, Value{Typ: v.Typ.Value, Raw: e.val}
}

// MapGet looks up key via binary search (O(log N), meeting spec
// §4.4.2's "acceptable" bound; the map's entries are sorted at
// construction, so this is always valid).
func (v Value) MapGet(key Value) (Value, bool) {
	obj := v.Raw.Ptr.(*mapObj)
	n := len(obj.entries)
	i := sort.Search(n, func(i int) bool {
		return compareRaw(v.Typ.Key, obj.entries[i].key, key.Raw) >= 0
	})
	if i < n && compareRaw(v.Typ.Key, obj.entries[i].key, key.Raw) == 0 {
		return Value{Typ: v.Typ.Value, Raw: obj.entries[i].val}, true
	}
	return Value{}, false
}

func (v Value) ArrayLen() int { return len(v.Raw.Ptr.(*arrayObj).elems) }
func (v Value) ArrayAt(i int) Value {
	return Value{Typ: v.Typ.Elem, Raw: v.Raw.Ptr.(*arrayObj).elems[i]}
}

// --- Equality, ordering, hashing (spec §3.3) ---

// Equal implements structural equality on both type and content.
// Function equality is reference equality (resolved per spec §9 using
// the original Rust implementation, see SPEC_FULL.md); Symbol uses
// identity.
func Equal(a, b Value) bool {
	if !a.Typ.Equals(b.Typ) {
		return false
	}
	return rawEqual(a.Typ, a.Raw, b.Raw)
}

func rawEqual(t *types.Type, a, b Raw) bool {
	switch t.Kind {
	case types.KFunction:
		return a.Ptr.(*FuncObj) == b.Ptr.(*FuncObj)
	case types.KFloat:
		return a.asFloat() == b.asFloat() // IEEE equality: NaN != NaN, +0.0 == -0.0
	case types.KSymbol:
		return true // same interned Symbol(name) type already established by Typ.Equals
	case types.KArray:
		aa, bb := a.Ptr.(*arrayObj), b.Ptr.(*arrayObj)
		if len(aa.elems) != len(bb.elems) {
			return false
		}
		for i := range aa.elems {
			if !rawEqual(t.Elem, aa.elems[i], bb.elems[i]) {
				return false
			}
		}
		return true
	case types.KRecord:
		aa, bb := a.Ptr.(*recordObj), b.Ptr.(*recordObj)
		for i, f := range t.Fields {
			if !rawEqual(f.Type, aa.fields[i], bb.fields[i]) {
				return false
			}
		}
		return true
	case types.KMap:
		aa, bb := a.Ptr.(*mapObj), b.Ptr.(*mapObj)
		if len(aa.entries) != len(bb.entries) {
			return false
		}
		for i := range aa.entries {
			if !rawEqual(t.Key, aa.entries[i].key, bb.entries[i].key) ||
				!rawEqual(t.Value, aa.entries[i].val, bb.entries[i].val) {
				return false
			}
		}
		return true
	case types.KOption:
		aNone := a.Ptr.(*optionObj) == nil
		bNone := b.Ptr.(*optionObj) == nil
		if aNone != bNone {
			return false
		}
		if aNone {
			return true
		}
		return rawEqual(t.Elem, a.Ptr.(*optionObj).inner, b.Ptr.(*optionObj).inner)
	default:
		return compareRaw(t, a, b) == 0
	}
}

// Compare implements the total order used for Ord, for map-key
// sorting, and (separately) for hashing's NaN/±0 canonicalisation.
// Float ordering is total: NaN sorts last, -0.0 and +0.0 compare
// equal (spec §3.3).
func Compare(a, b Value) int { return compareRaw(a.Typ, a.Raw, b.Raw) }

func compareRaw(t *types.Type, a, b Raw) int {
	switch t.Kind {
	case types.KInt:
		ai, bi := a.asInt(), b.asInt()
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	case types.KFloat:
		return compareFloatTotal(a.asFloat(), b.asFloat())
	case types.KBool:
		ab, bb := a.asBool(), b.asBool()
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case types.KStr:
		return strings.Compare(a.Ptr.(string), b.Ptr.(string))
	case types.KBytes:
		return compareBytes(a.Ptr.([]byte), b.Ptr.([]byte))
	case types.KSymbol:
		// Symbol identity: only meaningfully "equal" to itself; order by
		// the type's interned name since Symbol has no class instance
		// for Ord and this path is only reached by == / map-key sort of
		// a Hashable-but-not-Ord type. Name is stable per interning.
		return strings.Compare(t.Name, t.Name)
	case types.KArray:
		aa, bb := a.Ptr.(*arrayObj), b.Ptr.(*arrayObj)
		n := len(aa.elems)
		if len(bb.elems) < n {
			n = len(bb.elems)
		}
		for i := 0; i < n; i++ {
			if c := compareRaw(t.Elem, aa.elems[i], bb.elems[i]); c != 0 {
				return c
			}
		}
		return len(aa.elems) - len(bb.elems)
	case types.KRecord:
		aa, bb := a.Ptr.(*recordObj), b.Ptr.(*recordObj)
		for i, f := range t.Fields {
			if c := compareRaw(f.Type, aa.fields[i], bb.fields[i]); c != 0 {
				return c
			}
		}
		return 0
	case types.KMap:
		aa, bb := a.Ptr.(*mapObj), b.Ptr.(*mapObj)
		n := len(aa.entries)
		if len(bb.entries) < n {
			n = len(bb.entries)
		}
		for i := 0; i < n; i++ {
			if c := compareRaw(t.Key, aa.entries[i].key, bb.entries[i].key); c != 0 {
				return c
			}
			if c := compareRaw(t.Value, aa.entries[i].val, bb.entries[i].val); c != 0 {
				return c
			}
		}
		return len(aa.entries) - len(bb.entries)
	case types.KOption:
		aNone := a.Ptr.(*optionObj) == nil
		bNone := b.Ptr.(*optionObj) == nil
		switch {
		case aNone && bNone:
			return 0
		case aNone:
			return -1
		case bNone:
			return 1
		default:
			return compareRaw(t.Elem, a.Ptr.(*optionObj).inner, b.Ptr.(*optionObj).inner)
		}
	case types.KFunction:
		if a.Ptr.(*FuncObj) == b.Ptr.(*FuncObj) {
			return 0
		}
		return 1 // functions have no total order; only equality is meaningful
	default:
		return 0
	}
}

// compareFloatTotal gives Float a total order: -Inf < ... < -0.0 == +0.0
// < ... < +Inf < NaN < NaN (NaN last and equal to itself for ordering
// purposes, per spec §3.3).
func compareFloatTotal(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	// Collapse -0.0/+0.0 for ordering purposes too, matching the hash
	// canonicalisation so Ord and Hashable agree on equivalence classes.
	if a == 0 && b == 0 {
		return 0
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}

// Hash produces an idempotent hash consistent with Equal: canonicalises
// ±0.0 and all NaNs so that hash-equal values per spec §3.3/§8 hash the
// same (the "Idempotent hashing" testable property).
func Hash(v Value) uint64 {
	return hashRaw(v.Typ, v.Raw)
}

func hashRaw(t *types.Type, r Raw) uint64 {
	const fnv offset = 14695981039346656037
	h := uint64(fnv)
	mix := func(x uint64) {
		h ^= x
		h *= 1099511628211
	}
	switch t.Kind {
	case types.KInt, types.KBool:
		mix(r.Num)
	case types.KFloat:
		f := r.asFloat()
		if math.IsNaN(f) {
			mix(0x7ff8000000000000) // canonical NaN bit pattern
		} else if f == 0 {
			mix(0) // collapses +0.0 and -0.0
		} else {
			mix(r.Num)
		}
	case types.KStr:
		for _, b := range []byte(r.Ptr.(string)) {
			mix(uint64(b))
		}
	case types.KBytes:
		for _, b := range r.Ptr.([]byte) {
			mix(uint64(b))
		}
	case types.KSymbol:
		for _, b := range []byte(t.Name) {
			mix(uint64(b))
		}
	case types.KArray:
		for _, e := range r.Ptr.(*arrayObj).elems {
			mix(hashRaw(t.Elem, e))
		}
	default:
		// Hashable's instance table (spec §4.1.5) only admits the kinds
		// above and Array<T: Hashable>; anything else reaching here is a
		// programmer error caught earlier by the analyzer.
	}
	return h
}

type offset = uint64

// String renders a dynamic value for display (melbi's universal Show,
// available on every type including Function, per spec §9).
func (v Value) String() string {
	switch v.Typ.Kind {
	case types.KInt:
		return fmt.Sprintf("%d", v.AsInt())
	case types.KFloat:
		return fmt.Sprintf("%g", v.AsFloat())
	case types.KBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case types.KStr:
		return fmt.Sprintf("%q", v.AsStr())
	case types.KBytes:
		return fmt.Sprintf("%x", v.AsBytes())
	case types.KArray:
		parts := make([]string, v.ArrayLen())
		for i := range parts {
			parts[i] = v.ArrayAt(i).String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case types.KRecord:
		parts := make([]string, len(v.Typ.Fields))
		for i, f := range v.Typ.Fields {
			parts[i] = f.Name + " = " + v.Field(i).String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case types.KMap:
		parts := make([]string, v.MapLen())
		for i := range parts {
			k, val := v.MapEntryAt(i)
			parts[i] = k.String() + ": " + val.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case types.KOption:
		if v.IsNone() {
			return "none"
		}
		return "some " + v.Unwrap().String()
	case types.KFunction:
		return fmt.Sprintf("<function %s>", v.Typ)
	case types.KSymbol:
		return v.Typ.Name
	default:
		return "<?>"
	}
}
