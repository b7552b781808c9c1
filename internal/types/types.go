// Package types implements melbi's interned, tree-structured type system:
// primitive scalars, compound containers, records, options, functions, and
// the inference-only type variable used by internal/analyzer.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates the variants of Type.
type Kind uint8

const (
	KInt Kind = iota
	KFloat
	KBool
	KStr
	KBytes
	KArray
	KMap
	KRecord
	KOption
	KFunction
	KSymbol
	KTypeVar
)

// Field is one entry of a Record type: an alphabetically sorted,
// unique-by-name (name, Type) pair.
type Field struct {
	Name string
	Type *Type
}

// Type is an interned, structurally-equal type node. Two independently
// constructed Types with the same structural key are always the same
// *Type value once interned through a Registry, so pointer equality
// coincides with structural equality within one engine lifetime (spec
// §3.1).
//
// Fields are only meaningful for the Kind that produced them; callers
// switch on Kind, not on which fields happen to be set.
type Type struct {
	Kind Kind

	// KArray, KOption
	Elem *Type

	// KMap
	Key   *Type
	Value *Type

	// KRecord
	Fields []Field

	// KFunction
	Params []*Type
	Ret    *Type

	// KSymbol
	Name string

	// KTypeVar
	Var uint16

	key string // structural interning key, computed once
}

func (t *Type) String() string {
	switch t.Kind {
	case KInt:
		return "Int"
	case KFloat:
		return "Float"
	case KBool:
		return "Bool"
	case KStr:
		return "Str"
	case KBytes:
		return "Bytes"
	case KArray:
		return fmt.Sprintf("[%s]", t.Elem)
	case KMap:
		return fmt.Sprintf("Map[%s, %s]", t.Key, t.Value)
	case KRecord:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Type)
		}
		return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
	case KOption:
		return fmt.Sprintf("Option[%s]", t.Elem)
	case KFunction:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), t.Ret)
	case KSymbol:
		return fmt.Sprintf("Symbol(%s)", t.Name)
	case KTypeVar:
		return fmt.Sprintf("'t%d", t.Var)
	default:
		return "?"
	}
}

// IsResolved reports whether t contains no free TypeVar. Runtime values
// must only ever carry resolved types (spec §3.1).
func (t *Type) IsResolved() bool {
	switch t.Kind {
	case KTypeVar:
		return false
	case KArray, KOption:
		return t.Elem.IsResolved()
	case KMap:
		return t.Key.IsResolved() && t.Value.IsResolved()
	case KRecord:
		for _, f := range t.Fields {
			if !f.Type.IsResolved() {
				return false
			}
		}
		return true
	case KFunction:
		for _, p := range t.Params {
			if !p.IsResolved() {
				return false
			}
		}
		return t.Ret.IsResolved()
	default:
		return true
	}
}

// structuralKey computes the canonical interning key for a type built
// from already-interned children (children's keys are stable, so the
// key composition below is itself stable).
func structuralKey(kind Kind, t *Type) string {
	switch kind {
	case KInt, KFloat, KBool, KStr, KBytes:
		return kind.String()
	case KArray:
		return "Array(" + t.Elem.key + ")"
	case KOption:
		return "Option(" + t.Elem.key + ")"
	case KMap:
		return "Map(" + t.Key.key + "," + t.Value.key + ")"
	case KRecord:
		var b strings.Builder
		b.WriteString("Record(")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(f.Name)
			b.WriteByte(':')
			b.WriteString(f.Type.key)
		}
		b.WriteByte(')')
		return b.String()
	case KFunction:
		var b strings.Builder
		b.WriteString("Function(")
		for i, p := range t.Params {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(p.key)
		}
		b.WriteString(")->")
		b.WriteString(t.Ret.key)
		return b.String()
	case KSymbol:
		return "Symbol(" + t.Name + ")"
	case KTypeVar:
		return fmt.Sprintf("TypeVar(%d)", t.Var)
	default:
		panic("unreachable kind")
	}
}

func (k Kind) String() string {
	switch k {
	case KInt:
		return "Int"
	case KFloat:
		return "Float"
	case KBool:
		return "Bool"
	case KStr:
		return "Str"
	case KBytes:
		return "Bytes"
	case KArray:
		return "Array"
	case KMap:
		return "Map"
	case KRecord:
		return "Record"
	case KOption:
		return "Option"
	case KFunction:
		return "Function"
	case KSymbol:
		return "Symbol"
	case KTypeVar:
		return "TypeVar"
	default:
		return "Unknown"
	}
}

// SortFields sorts a field slice alphabetically by name, matching the
// Record interning rule of spec §3.1.
func SortFields(fields []Field) {
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
}

// DuplicateFieldName returns the first duplicated field name, if any,
// assuming fields is already sorted by SortFields.
func DuplicateFieldName(sortedFields []Field) (string, bool) {
	for i := 1; i < len(sortedFields); i++ {
		if sortedFields[i].Name == sortedFields[i-1].Name {
			return sortedFields[i].Name, true
		}
	}
	return "", false
}
