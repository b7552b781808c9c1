package types

// Class identifies one of melbi's closed set of ad-hoc-polymorphism
// type classes (spec §4.1.5). Confirmed against the original Rust
// implementation's internal/original_source/core/src/types/type_class.rs,
// which documents Eq and Show as universal (no class needed) and
// Containable as a two-type relation rather than a single-type
// instance predicate — both are modeled that way here.
type Class uint8

const (
	Numeric Class = iota
	Indexable
	Hashable
	Ord
)

func (c Class) String() string {
	switch c {
	case Numeric:
		return "Numeric"
	case Indexable:
		return "Indexable"
	case Hashable:
		return "Hashable"
	case Ord:
		return "Ord"
	default:
		return "?"
	}
}

// HasInstance reports whether t satisfies class c. The instance table
// is hard-coded per spec §4.1.5 and derived recursively for Array.
func HasInstance(c Class, t *Type) bool {
	switch c {
	case Numeric:
		return t.Kind == KInt || t.Kind == KFloat
	case Indexable:
		return t.Kind == KArray || t.Kind == KMap || t.Kind == KBytes
	case Ord:
		return t.Kind == KInt || t.Kind == KFloat || t.Kind == KStr || t.Kind == KBytes
	case Hashable:
		switch t.Kind {
		case KInt, KFloat, KBool, KStr, KBytes, KSymbol:
			return true
		case KArray:
			return HasInstance(Hashable, t.Elem)
		default:
			return false
		}
	default:
		return false
	}
}

// Containable reports whether (needle in haystack) is well-typed:
// (Str, Str) substring containment, (Bytes, Bytes) subsequence-byte
// containment, (E, Array[E]) element membership, (K, Map[K,V]) key
// membership.
func Containable(needle, haystack *Type) bool {
	switch haystack.Kind {
	case KStr:
		return needle.Kind == KStr
	case KBytes:
		return needle.Kind == KBytes
	case KArray:
		return needle.Equals(haystack.Elem)
	case KMap:
		return needle.Equals(haystack.Key)
	default:
		return false
	}
}

// Equals reports structural type equality. Because the registry
// interns types, pointer equality (t == other) is equivalent and
// preferred on the hot path; Equals exists for types built outside a
// Registry (e.g. during unification, before resolution/interning).
func (t *Type) Equals(other *Type) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil || t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KInt, KFloat, KBool, KStr, KBytes:
		return true
	case KArray, KOption:
		return t.Elem.Equals(other.Elem)
	case KMap:
		return t.Key.Equals(other.Key) && t.Value.Equals(other.Value)
	case KRecord:
		if len(t.Fields) != len(other.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != other.Fields[i].Name || !t.Fields[i].Type.Equals(other.Fields[i].Type) {
				return false
			}
		}
		return true
	case KFunction:
		if len(t.Params) != len(other.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equals(other.Params[i]) {
				return false
			}
		}
		return t.Ret.Equals(other.Ret)
	case KSymbol:
		return t.Name == other.Name
	case KTypeVar:
		return t.Var == other.Var
	default:
		return false
	}
}
